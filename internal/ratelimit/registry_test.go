package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/you/accountsvc/internal/metrics"
)

func testConfig() Config {
	return Config{
		Templates: map[string]BucketConfig{
			DefaultTemplate: {Capacity: 5, RefillTokens: 5, RefillPeriod: time.Minute},
			"strict":        {Capacity: 2, RefillTokens: 1, RefillPeriod: time.Minute},
		},
		Operations: map[string]string{
			"login": "strict",
		},
	}
}

type failingBackend struct{}

func (failingBackend) Allow(context.Context, string, BucketConfig, time.Time) (bool, error) {
	return false, errors.New("connection refused")
}

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "missing default template",
			cfg: Config{Templates: map[string]BucketConfig{
				"strict": {Capacity: 1, RefillTokens: 1, RefillPeriod: time.Second},
			}},
		},
		{
			name: "non-positive capacity",
			cfg: Config{Templates: map[string]BucketConfig{
				DefaultTemplate: {Capacity: 0, RefillTokens: 1, RefillPeriod: time.Second},
			}},
		},
		{
			name: "unknown template reference",
			cfg: Config{
				Templates: map[string]BucketConfig{
					DefaultTemplate: {Capacity: 1, RefillTokens: 1, RefillPeriod: time.Second},
				},
				Operations: map[string]string{"login": "missing"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(NewMemoryBackend(time.Minute), tt.cfg, zap.NewNop(), nil)
			assert.Error(t, err)
		})
	}
}

func TestRegistry_TryAcquire_CapacityBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	reg, err := NewRegistry(NewMemoryBackend(time.Minute), testConfig(), zap.NewNop(), nil)
	require.NoError(t, err)
	reg.WithClock(func() time.Time { return now })

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		assert.True(t, reg.TryAcquire(ctx, "signup", "10.0.0.1"), "call %d should pass", i+1)
	}
	assert.False(t, reg.TryAcquire(ctx, "signup", "10.0.0.1"), "6th call should be rejected")

	assert.True(t, reg.TryAcquire(ctx, "signup", "10.0.0.2"), "other key must be unaffected")
	assert.True(t, reg.TryAcquire(ctx, "resend-code", "10.0.0.1"), "other operation must be unaffected")
}

func TestRegistry_TryAcquire_Refill(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	reg, err := NewRegistry(NewMemoryBackend(time.Hour), testConfig(), zap.NewNop(), nil)
	require.NoError(t, err)
	reg.WithClock(func() time.Time { return now })

	ctx := context.Background()
	assert.True(t, reg.TryAcquire(ctx, "login", "alice_01"))
	assert.True(t, reg.TryAcquire(ctx, "login", "alice_01"))
	assert.False(t, reg.TryAcquire(ctx, "login", "alice_01"))

	now = now.Add(time.Minute)
	assert.True(t, reg.TryAcquire(ctx, "login", "alice_01"))
	assert.False(t, reg.TryAcquire(ctx, "login", "alice_01"))
}

func TestRegistry_TryAcquire_CountsRejections(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	reg, err := NewRegistry(NewMemoryBackend(time.Minute), testConfig(), zap.NewNop(), m)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		reg.TryAcquire(ctx, "login", "bob")
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RateLimitRejections.WithLabelValues("login")))
}

func TestRegistry_TryAcquire_FailsOpen(t *testing.T) {
	reg, err := NewRegistry(failingBackend{}, testConfig(), zap.NewNop(), nil)
	require.NoError(t, err)

	assert.True(t, reg.TryAcquire(context.Background(), "login", "bob"))
}

func TestMemoryBackend_SweepsIdleBuckets(t *testing.T) {
	backend := NewMemoryBackend(time.Minute)
	bucket := BucketConfig{Capacity: 1, RefillTokens: 1, RefillPeriod: time.Second}
	start := time.Now()
	ctx := context.Background()

	_, _ = backend.Allow(ctx, "a", bucket, start)
	_, _ = backend.Allow(ctx, "b", bucket, start)
	assert.Equal(t, 2, backend.Len())

	_, _ = backend.Allow(ctx, "c", bucket, start.Add(2*time.Minute))
	assert.Equal(t, 1, backend.Len())
}

func TestMemoryBackend_SweptBucketIsNotReused(t *testing.T) {
	backend := NewMemoryBackend(time.Minute)
	bucket := BucketConfig{Capacity: 1, RefillTokens: 1, RefillPeriod: time.Hour}
	start := time.Now()
	later := start.Add(2 * time.Minute)

	held := backend.bucketFor("a", bucket, start)
	backend.sweep(later)
	assert.Equal(t, 0, backend.Len())

	// a caller still holding the swept bucket must look the key up again
	_, live := held.take(later)
	assert.False(t, live)

	allowed, err := backend.Allow(context.Background(), "a", bucket, later)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, backend.Len())
}

func TestMemoryBackend_TouchedBucketSurvivesSweep(t *testing.T) {
	backend := NewMemoryBackend(time.Minute)
	bucket := BucketConfig{Capacity: 1, RefillTokens: 1, RefillPeriod: time.Hour}
	start := time.Now()
	later := start.Add(2 * time.Minute)

	held := backend.bucketFor("a", bucket, start)
	ok, live := held.take(later)
	require.True(t, live)
	require.True(t, ok)

	backend.sweep(later)
	assert.Equal(t, 1, backend.Len())

	allowed, err := backend.Allow(context.Background(), "a", bucket, later)
	require.NoError(t, err)
	assert.False(t, allowed, "the drained bucket must be kept, not replaced")
}
