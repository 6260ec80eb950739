package memory

import (
	"context"
	"sync"
	"time"

	"secapi/internal/domain"
)

type cacheEntry struct {
	result    *domain.ScanResult
	expiresAt time.Time
}

// ResultCache is a TTL map keyed by fingerprint. Stores replace entries
// wholesale; last write wins.
type ResultCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry

	// now is swappable in tests to step past TTLs.
	now func() time.Time
}

func NewResultCache() *ResultCache {
	return &ResultCache{entries: make(map[string]cacheEntry), now: time.Now}
}

func (c *ResultCache) Lookup(_ context.Context, fingerprint string) (*domain.ScanResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[fingerprint]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, fingerprint)
		return nil, false, nil
	}
	return e.result, true, nil
}

func (c *ResultCache) Store(_ context.Context, fingerprint string, result *domain.ScanResult, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = cacheEntry{result: result, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *ResultCache) Invalidate(_ context.Context, fingerprint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, fingerprint)
	return nil
}

// SetNow overrides the clock; tests use it to expire entries.
func (c *ResultCache) SetNow(now func() time.Time) { c.now = now }
