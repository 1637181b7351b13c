package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KEYS[1] counter key; ARGV[1] limit; ARGV[2] window in milliseconds.
// Returns {allowed, count, pttl}.
var takeScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
local window = tonumber(ARGV[2])
if not current then
  redis.call('SET', KEYS[1], 1, 'PX', window)
  return {1, 1, window}
end
current = tonumber(current)
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], window)
  ttl = window
end
if current >= tonumber(ARGV[1]) then
  return {0, current, ttl}
end
redis.call('INCR', KEYS[1])
return {1, current + 1, ttl}
`)

// RedisStore is a [Store] shared by every instance talking to the same Redis.
// Expired windows disappear with the key TTL, so no sweep is needed.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a [RedisStore]. prefix is prepended to every key.
func NewRedisStore(redisClient redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisStore) Take(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 || window <= 0 {
		return Decision{}, ErrInvalidLimit
	}
	if s == nil || s.redis == nil {
		return Decision{}, ErrStoreUnavailable
	}

	windowMS := window.Milliseconds()
	if windowMS <= 0 {
		windowMS = 1
	}

	res, err := takeScript.Run(ctx, s.redis, []string{s.prefix + key}, limit, windowMS).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("%w: unexpected script reply length %d", ErrStoreUnavailable, len(res))
	}

	ttl := time.Duration(res[2]) * time.Millisecond
	if ttl < 0 {
		ttl = 0
	}

	return Decision{
		Allowed: res[0] == 1,
		Count:   int(res[1]),
		ResetAt: time.Now().Add(ttl),
	}, nil
}
