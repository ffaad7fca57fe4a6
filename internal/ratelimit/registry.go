package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/you/accountsvc/internal/metrics"
)

// DefaultTemplate is used for operations without an explicit mapping
const DefaultTemplate = "default"

// BucketConfig describes a token bucket: Capacity tokens, refilled at
// RefillTokens per RefillPeriod.
type BucketConfig struct {
	Capacity     int
	RefillTokens int
	RefillPeriod time.Duration
}

func (b BucketConfig) validate() error {
	if b.Capacity <= 0 || b.RefillTokens <= 0 || b.RefillPeriod <= 0 {
		return fmt.Errorf("capacity, refill tokens and refill period must be positive")
	}
	return nil
}

// perSecond returns the steady-state refill rate
func (b BucketConfig) perSecond() float64 {
	return float64(b.RefillTokens) / b.RefillPeriod.Seconds()
}

// fullRefill is how long an empty bucket takes to fill up
func (b BucketConfig) fullRefill() time.Duration {
	return time.Duration(float64(b.Capacity) / b.perSecond() * float64(time.Second))
}

// Backend stores bucket state. Allow must consume one token atomically.
type Backend interface {
	Allow(ctx context.Context, key string, bucket BucketConfig, now time.Time) (bool, error)
}

// Config maps operations to named bucket templates
type Config struct {
	Templates  map[string]BucketConfig
	Operations map[string]string
}

// Registry resolves the bucket for an (operation, identity) pair and
// consumes from it. It never blocks.
type Registry struct {
	backend    Backend
	templates  map[string]BucketConfig
	operations map[string]string
	now        func() time.Time
	log        *zap.Logger
	metrics    *metrics.Metrics
}

// NewRegistry validates cfg and builds a registry over backend
func NewRegistry(backend Backend, cfg Config, log *zap.Logger, m *metrics.Metrics) (*Registry, error) {
	if _, ok := cfg.Templates[DefaultTemplate]; !ok {
		return nil, fmt.Errorf("rate limit template %q is required", DefaultTemplate)
	}
	for name, tpl := range cfg.Templates {
		if err := tpl.validate(); err != nil {
			return nil, fmt.Errorf("rate limit template %q: %w", name, err)
		}
	}
	for op, tpl := range cfg.Operations {
		if _, ok := cfg.Templates[tpl]; !ok {
			return nil, fmt.Errorf("operation %q references unknown template %q", op, tpl)
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		backend:    backend,
		templates:  cfg.Templates,
		operations: cfg.Operations,
		now:        time.Now,
		log:        log.With(zap.String("component", "ratelimit")),
		metrics:    m,
	}, nil
}

// WithClock overrides the time source
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// TryAcquire implements domain.RateLimiter. Backend failures let the request
// through: the limiter is advisory.
func (r *Registry) TryAcquire(ctx context.Context, operation, identityKey string) bool {
	bucket := r.templateFor(operation)
	allowed, err := r.backend.Allow(ctx, bucketKey(operation, identityKey), bucket, r.now())
	if err != nil {
		r.log.Warn("rate limit backend failed, allowing request",
			zap.String("operation", operation), zap.Error(err))
		return true
	}
	if !allowed {
		r.log.Debug("rate limited", zap.String("operation", operation), zap.String("identity", identityKey))
		if r.metrics != nil {
			r.metrics.RateLimitRejections.WithLabelValues(operation).Inc()
		}
	}
	return allowed
}

func (r *Registry) templateFor(operation string) BucketConfig {
	if name, ok := r.operations[operation]; ok {
		return r.templates[name]
	}
	return r.templates[DefaultTemplate]
}

func bucketKey(operation, identityKey string) string {
	return operation + ":" + identityKey
}
