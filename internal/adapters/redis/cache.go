package redisadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"secapi/internal/domain"
)

func cacheKey(fingerprint string) string {
	return "scan:result:" + fingerprint
}

// Lookup returns the cached result for a fingerprint, or ok=false on a miss.
// Redis expires entries itself; there is no client-side TTL bookkeeping.
func (c *Client) Lookup(ctx context.Context, fingerprint string) (*domain.ScanResult, bool, error) {
	data, err := c.rdb.Get(ctx, cacheKey(fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup: %w", err)
	}
	var result domain.ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("cache entry corrupt: %w", err)
	}
	return &result, true, nil
}

// Store writes a completed result with the tier's TTL. SET replaces any
// previous entry atomically; concurrent stores are last-write-wins.
func (c *Client) Store(ctx context.Context, fingerprint string, result *domain.ScanResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := c.rdb.Set(ctx, cacheKey(fingerprint), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}

func (c *Client) Invalidate(ctx context.Context, fingerprint string) error {
	if err := c.rdb.Del(ctx, cacheKey(fingerprint)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
