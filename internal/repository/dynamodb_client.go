package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	pkPrefixRate = "RATE#"
	skWindow     = "WINDOW#"
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoStore keeps rate window counters in a DynamoDB table so that
// concurrent Lambda invocations share one budget. Items carry a ttl attribute
// for DynamoDB TTL expiry.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// NewDynamoStore creates a DynamoStore for tableName.
func NewDynamoStore(api dynamodbAPI, tableName string) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &DynamoStore{api: api, tableName: tableName, now: time.Now}, nil
}

// ratePK returns the partition key for a rate bucket.
func ratePK(bucketKey string) string {
	return pkPrefixRate + bucketKey
}

func (s *DynamoStore) key(bucketKey string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: ratePK(bucketKey)},
		"SK": &types.AttributeValueMemberS{Value: skWindow},
	}
}

// Count returns the stored count for bucketKey, or 0 when the item is missing
// or past its ttl but not yet removed.
func (s *DynamoStore) Count(ctx context.Context, bucketKey string) (int, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(bucketKey),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("repository: Count get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return 0, nil
	}

	if ttl, err := intAttr(out.Item, "ttl"); err == nil && int64(ttl) <= s.now().Unix() {
		return 0, nil
	}
	count, err := intAttr(out.Item, "count")
	if err != nil {
		return 0, fmt.Errorf("repository: Count decode count: %w", err)
	}
	return count, nil
}

// TakeIfBelow atomically increments the bucket unless it already reached
// ceiling. A failed condition check is reported as (false, nil).
func (s *DynamoStore) TakeIfBelow(ctx context.Context, bucketKey string, ceiling int, ttl time.Duration) (bool, error) {
	expires := s.now().Add(ttl).Unix()
	_, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 s.key(bucketKey),
		UpdateExpression:    aws.String("ADD #count :one SET #ttl = if_not_exists(#ttl, :ttl)"),
		ConditionExpression: aws.String("attribute_not_exists(#count) OR #count < :ceiling"),
		ExpressionAttributeNames: map[string]string{
			"#count": "count",
			"#ttl":   "ttl",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":     &types.AttributeValueMemberN{Value: "1"},
			":ceiling": &types.AttributeValueMemberN{Value: strconv.Itoa(ceiling)},
			":ttl":     &types.AttributeValueMemberN{Value: strconv.FormatInt(expires, 10)},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return false, fmt.Errorf("repository: TakeIfBelow update item: %w", err)
	}
	return true, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
