package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

type memoryBucket struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	lastSeen int64
	dead     bool
}

// take consumes a token. live is false when the sweep has already dropped
// the bucket, in which case the caller must look the key up again.
func (mb *memoryBucket) take(now time.Time) (ok, live bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.dead {
		return false, false
	}
	mb.lastSeen = now.UnixNano()
	return mb.limiter.AllowN(now, 1), true
}

// MemoryBackend keeps one token bucket per key in process memory. Buckets
// idle for longer than idleTTL are dropped on a later call.
type MemoryBackend struct {
	buckets   sync.Map
	idleTTL   time.Duration
	lastSweep atomic.Int64
}

func NewMemoryBackend(idleTTL time.Duration) *MemoryBackend {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	b := &MemoryBackend{idleTTL: idleTTL}
	b.lastSweep.Store(time.Now().UnixNano())
	return b
}

func (b *MemoryBackend) Allow(_ context.Context, key string, bucket BucketConfig, now time.Time) (bool, error) {
	b.sweep(now)

	for {
		ok, live := b.bucketFor(key, bucket, now).take(now)
		if live {
			return ok, nil
		}
	}
}

func (b *MemoryBackend) bucketFor(key string, bucket BucketConfig, now time.Time) *memoryBucket {
	if v, ok := b.buckets.Load(key); ok {
		return v.(*memoryBucket)
	}
	v, _ := b.buckets.LoadOrStore(key, &memoryBucket{
		limiter:  rate.NewLimiter(rate.Limit(bucket.perSecond()), bucket.Capacity),
		lastSeen: now.UnixNano(),
	})
	return v.(*memoryBucket)
}

// Len reports the number of live buckets
func (b *MemoryBackend) Len() int {
	n := 0
	b.buckets.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (b *MemoryBackend) sweep(now time.Time) {
	last := b.lastSweep.Load()
	if now.UnixNano()-last < int64(b.idleTTL) {
		return
	}
	if !b.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	cutoff := now.Add(-b.idleTTL).UnixNano()
	b.buckets.Range(func(k, v any) bool {
		mb := v.(*memoryBucket)
		mb.mu.Lock()
		if mb.lastSeen < cutoff {
			mb.dead = true
			b.buckets.CompareAndDelete(k, mb)
		}
		mb.mu.Unlock()
		return true
	})
}
