package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"secapi/internal/ports"
)

type bucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter counts requests per (user, endpoint, hour bucket) under one
// mutex, so the check and the increment cannot race apart.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	limitFor func(tier string) int
	window   time.Duration
	now      func() time.Time
}

// NewRateLimiter builds a limiter with hourly buckets. limitFor maps a tier
// to its per-window allowance; it is the only tier knowledge the limiter has.
func NewRateLimiter(limitFor func(tier string) int) *RateLimiter {
	return &RateLimiter{
		buckets:  make(map[string]*bucket),
		limitFor: limitFor,
		window:   time.Hour,
		now:      time.Now,
	}
}

func (l *RateLimiter) CheckAndRecord(_ context.Context, userID, tier, endpoint string) (ports.RateDecision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	start := now.Truncate(l.window)
	key := fmt.Sprintf("%s:%s:%d", userID, endpoint, start.Unix())

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{resetAt: start.Add(l.window)}
		l.buckets[key] = b
		l.sweep(now)
	}

	limit := l.limitFor(tier)
	if b.count+1 > limit {
		return ports.RateDecision{
			Allowed:    false,
			ResetAt:    b.resetAt,
			RetryAfter: b.resetAt.Sub(now),
		}, nil
	}
	b.count++

	return ports.RateDecision{
		Allowed:   true,
		Remaining: limit - b.count,
		ResetAt:   b.resetAt,
	}, nil
}

// sweep drops buckets whose window has passed. Called with the lock held.
func (l *RateLimiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if b.resetAt.Before(now) {
			delete(l.buckets, k)
		}
	}
}

// SetNow overrides the clock; tests use it to cross bucket boundaries.
func (l *RateLimiter) SetNow(now func() time.Time) { l.now = now }
