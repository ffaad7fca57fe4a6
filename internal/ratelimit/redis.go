package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "accountsvc:rl:"

// tokens and ts live in one hash per bucket; ARGV: capacity, tokens per ms,
// now in ms, key ttl in ms.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
  tokens = capacity
  ts = now
end

if now > ts then
  tokens = math.min(capacity, tokens + (now - ts) * rate)
  ts = now
end

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call("HSET", key, "tokens", tostring(tokens), "ts", tostring(ts))
redis.call("PEXPIRE", key, ttl)
return allowed
`)

// RedisBackend shares buckets across service instances
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) Allow(ctx context.Context, key string, bucket BucketConfig, now time.Time) (bool, error) {
	perMS := bucket.perSecond() / 1000
	ttlMS := bucket.fullRefill().Milliseconds() + 1000

	res, err := tokenBucketScript.Run(ctx, b.client, []string{b.prefix + key},
		bucket.Capacity, perMS, now.UnixMilli(), ttlMS).Int64()
	if err != nil {
		return false, fmt.Errorf("token bucket script: %w", err)
	}
	return res == 1, nil
}
