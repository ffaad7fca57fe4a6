package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/you/accountsvc/domain"
)

// CleanupRunner runs the account cleanup sweeps periodically
type CleanupRunner struct {
	cleanup  domain.AccountCleanupService
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
	wg       sync.WaitGroup
}

// NewCleanupRunner creates a runner. Each sweep is bounded by timeout, which
// defaults to half the interval.
func NewCleanupRunner(cleanup domain.AccountCleanupService, interval time.Duration, log *zap.Logger) *CleanupRunner {
	return &CleanupRunner{
		cleanup:  cleanup,
		interval: interval,
		timeout:  interval / 2,
		log:      log.With(zap.String("job", "account-cleanup")),
	}
}

// Start runs one sweep immediately and then one per interval on its own
// goroutine until ctx is cancelled.
func (r *CleanupRunner) Start(ctx context.Context) {
	if r.interval <= 0 {
		r.log.Warn("account cleanup disabled")
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.RunOnce(ctx)
			}
		}
	}()
}

// Wait blocks until the goroutine started by Start has returned
func (r *CleanupRunner) Wait() {
	r.wg.Wait()
}

// RunOnce performs both sweeps, each under its own timeout. Failures are
// logged; the next tick retries.
func (r *CleanupRunner) RunOnce(ctx context.Context) {
	start := time.Now()
	pending, err := r.sweep(ctx, r.cleanup.PurgeStalePending)
	if err != nil {
		r.log.Error("pending account sweep failed", zap.Error(err))
	}
	disabled, err := r.sweep(ctx, r.cleanup.PurgeStaleDisabled)
	if err != nil {
		r.log.Error("disabled account sweep failed", zap.Error(err))
	}

	r.log.Debug("account cleanup finished",
		zap.Int64("pending", pending),
		zap.Int64("disabled", disabled),
		zap.Duration("took", time.Since(start)))
}

func (r *CleanupRunner) sweep(ctx context.Context, purge func(context.Context) (int64, error)) (int64, error) {
	sweepCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return purge(sweepCtx)
}
