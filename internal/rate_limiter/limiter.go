// Package ratelimiter throttles callers by key with token buckets that are
// forgotten after a period of inactivity.
package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type CleanupOpts struct {
	TTL      time.Duration
	Interval time.Duration
}

// Limiter allows requests per key at a fixed rate with a burst of the full
// window's allowance.
type Limiter[K comparable] struct {
	limiters map[K]*rate.Limiter
	lastSeen map[K]time.Time
	mu       sync.Mutex
	cancel   context.CancelFunc
	rate     rate.Limit
	burst    int
	now      func() time.Time
	CleanupOpts
}

// NewLimiter allows requests per window for every key. A non-positive
// requests value disables limiting.
func NewLimiter[K comparable](requests int, window time.Duration, cleanupOpts CleanupOpts) *Limiter[K] {
	ctx, cancel := context.WithCancel(context.Background())
	rl := &Limiter[K]{
		limiters:    make(map[K]*rate.Limiter),
		lastSeen:    make(map[K]time.Time),
		cancel:      cancel,
		rate:        rate.Inf,
		burst:       requests,
		now:         time.Now,
		CleanupOpts: cleanupOpts,
	}
	if requests > 0 {
		rl.rate = rate.Every(window / time.Duration(requests))
	}

	if rl.Interval > 0 {
		go rl.cleanup(ctx)
	}

	return rl
}

// Stop ends the cleanup loop.
func (rl *Limiter[K]) Stop() {
	rl.cancel()
}

func (rl *Limiter[K]) cleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evict()
		}
	}
}

func (rl *Limiter[K]) evict() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, ls := range rl.lastSeen {
		if rl.now().Sub(ls) > rl.TTL {
			delete(rl.limiters, key)
			delete(rl.lastSeen, key)
		}
	}
}

// Allow reports whether key may proceed now, consuming a token if so.
func (rl *Limiter[K]) Allow(key K) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, ok := rl.limiters[key]
	if !ok {
		bucket = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = bucket
	}

	now := rl.now()
	rl.lastSeen[key] = now
	return bucket.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (rl *Limiter[K]) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
