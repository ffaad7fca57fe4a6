package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisBackend_Allow(t *testing.T) {
	mr, client := newTestRedis(t)
	backend := NewRedisBackend(client, "")
	bucket := BucketConfig{Capacity: 5, RefillTokens: 5, RefillPeriod: time.Minute}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := backend.Allow(ctx, "login:10.0.0.1", bucket, now)
		require.NoError(t, err)
		assert.True(t, ok, "call %d should pass", i+1)
	}
	ok, err := backend.Allow(ctx, "login:10.0.0.1", bucket, now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = backend.Allow(ctx, "login:10.0.0.2", bucket, now)
	require.NoError(t, err)
	assert.True(t, ok)

	// one token back after 12s
	ok, err = backend.Allow(ctx, "login:10.0.0.1", bucket, now.Add(12*time.Second))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, mr.Exists(defaultRedisPrefix+"login:10.0.0.1"))
	assert.Greater(t, mr.TTL(defaultRedisPrefix+"login:10.0.0.1"), time.Duration(0))
}

func TestRedisBackend_ErrorSurfaces(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	backend := NewRedisBackend(client, "rl:")
	mr.Close()

	_, err = backend.Allow(context.Background(), "k", BucketConfig{Capacity: 1, RefillTokens: 1, RefillPeriod: time.Second}, time.Now())
	assert.Error(t, err)
}
