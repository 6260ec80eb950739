package redisadapter

import (
	"context"
	"fmt"
	"time"

	"secapi/internal/ports"
)

// RateLimiter implements hour-bucket rate limiting on Redis. INCR is the
// atomic check-and-record: the returned count alone decides the outcome, so
// two concurrent requests can never both pass on the last slot.
type RateLimiter struct {
	client   *Client
	limitFor func(tier string) int
	window   time.Duration
}

func NewRateLimiter(client *Client, limitFor func(tier string) int) *RateLimiter {
	return &RateLimiter{client: client, limitFor: limitFor, window: time.Hour}
}

func (l *RateLimiter) CheckAndRecord(ctx context.Context, userID, tier, endpoint string) (ports.RateDecision, error) {
	now := time.Now().UTC()
	start := now.Truncate(l.window)
	resetAt := start.Add(l.window)
	key := fmt.Sprintf("ratelimit:%s:%s:%d", userID, endpoint, start.Unix())

	count, err := l.client.rdb.Incr(ctx, key).Result()
	if err != nil {
		return ports.RateDecision{}, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		// First hit creates the bucket; expire it with its window so dead
		// buckets clean themselves up.
		if err := l.client.rdb.Expire(ctx, key, resetAt.Sub(now)).Err(); err != nil {
			return ports.RateDecision{}, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	limit := int64(l.limitFor(tier))
	if count > limit {
		return ports.RateDecision{
			Allowed:    false,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}, nil
	}
	return ports.RateDecision{
		Allowed:   true,
		Remaining: int(limit - count),
		ResetAt:   resetAt,
	}, nil
}
