package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "autodraft:rate:"

// takeIfBelowScript increments KEYS[1] only while it is below ARGV[1] and sets
// a millisecond expiry (ARGV[2]) on first use. Returns 1 when taken.
const takeIfBelowScript = `
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
  return 0
end
current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 1
`

// redisAPI is the subset of *redis.Client used by RedisStore.
type redisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisStore keeps rate window counters in Redis; keys expire on their own.
type RedisStore struct {
	api redisAPI
}

// NewRedisStore wraps an existing client.
func NewRedisStore(api redisAPI) (*RedisStore, error) {
	if api == nil {
		return nil, errors.New("repository: redis client must not be nil")
	}
	return &RedisStore{api: api}, nil
}

// DialRedis parses url (redis://...) and pings the server.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("repository: parse redis url: %w", err)
	}
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("repository: ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Count(ctx context.Context, bucketKey string) (int, error) {
	n, err := s.api.Get(ctx, redisKeyPrefix+bucketKey).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("repository: redis get: %w", err)
	}
	return n, nil
}

func (s *RedisStore) TakeIfBelow(ctx context.Context, bucketKey string, ceiling int, ttl time.Duration) (bool, error) {
	taken, err := s.api.Eval(ctx, takeIfBelowScript, []string{redisKeyPrefix + bucketKey}, ceiling, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("repository: redis take: %w", err)
	}
	return taken == 1, nil
}
