// Package paramstore reads secrets from AWS Systems Manager Parameter Store.
package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ErrNotFound is returned when a requested parameter does not exist.
var ErrNotFound = errors.New("paramstore: parameter not found")

// ssm.GetParameters accepts at most ten names per call.
const maxNamesPerCall = 10

// ssmAPI is the subset of *ssm.Client used by Client.
type ssmAPI interface {
	GetParameters(ctx context.Context, in *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error)
}

// Getter fetches a single decrypted parameter value.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client fetches decrypted parameters and keeps the values for the life of
// the process, so warm Lambda invocations skip the SSM round trip.
type Client struct {
	api ssmAPI

	mu     sync.Mutex
	values map[string]string
}

func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api, values: make(map[string]string)}, nil
}

// GetParameter returns the value of name.
func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	vals, err := c.Lookup(ctx, name)
	if err != nil {
		return "", err
	}
	return vals[strings.TrimSpace(name)], nil
}

// Lookup returns the values of every name, fetching the ones not seen before
// in batches. Any unknown name fails the whole call with ErrNotFound.
func (c *Client) Lookup(ctx context.Context, names ...string) (map[string]string, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("paramstore: client not initialized")
	}

	out := make(map[string]string, len(names))
	var missing []string

	c.mu.Lock()
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			c.mu.Unlock()
			return nil, errors.New("paramstore: name is required")
		}
		if v, ok := c.values[n]; ok {
			out[n] = v
			continue
		}
		missing = append(missing, n)
	}
	c.mu.Unlock()

	for len(missing) > 0 {
		chunk := missing
		if len(chunk) > maxNamesPerCall {
			chunk = chunk[:maxNamesPerCall]
		}
		missing = missing[len(chunk):]

		fetched, err := c.fetch(ctx, chunk)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		for n, v := range fetched {
			c.values[n] = v
			out[n] = v
		}
		c.mu.Unlock()
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, names []string) (map[string]string, error) {
	res, err := c.api.GetParameters(ctx, &ssm.GetParametersInput{
		Names:          names,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("paramstore: get parameters %q: %w", names, err)
	}
	if res == nil {
		return nil, errors.New("paramstore: empty response")
	}
	if len(res.InvalidParameters) > 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, res.InvalidParameters)
	}

	vals := make(map[string]string, len(res.Parameters))
	for _, p := range res.Parameters {
		if p.Value == nil {
			return nil, fmt.Errorf("paramstore: parameter %q missing value", aws.ToString(p.Name))
		}
		vals[aws.ToString(p.Name)] = *p.Value
	}
	for _, n := range names {
		if _, ok := vals[n]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, n)
		}
	}
	return vals, nil
}
