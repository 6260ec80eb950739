package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secapi/internal/domain"
)

func TestCacheHitWithinTTL(t *testing.T) {
	ctx := context.Background()
	c := NewResultCache()
	res := &domain.ScanResult{ScanType: domain.ScanTypeContainerImage}

	require.NoError(t, c.Store(ctx, "fp1", res, time.Hour))

	got, ok, err := c.Lookup(ctx, "fp1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, res, got)
}

func TestCacheMiss(t *testing.T) {
	ctx := context.Background()
	c := NewResultCache()
	_, ok, err := c.Lookup(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheExpiresByTTL(t *testing.T) {
	ctx := context.Background()
	c := NewResultCache()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.SetNow(func() time.Time { return now })

	require.NoError(t, c.Store(ctx, "fp1", &domain.ScanResult{}, time.Hour))

	now = now.Add(59 * time.Minute)
	_, ok, _ := c.Lookup(ctx, "fp1")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.Lookup(ctx, "fp1")
	assert.False(t, ok, "entry past its TTL must be a miss")
}

func TestCacheStoreReplacesAtomically(t *testing.T) {
	ctx := context.Background()
	c := NewResultCache()
	first := &domain.ScanResult{Summary: domain.SeverityCount{High: 1}}
	second := &domain.ScanResult{Summary: domain.SeverityCount{High: 2}}

	require.NoError(t, c.Store(ctx, "fp1", first, time.Hour))
	require.NoError(t, c.Store(ctx, "fp1", second, time.Hour))

	got, ok, _ := c.Lookup(ctx, "fp1")
	require.True(t, ok)
	assert.Equal(t, 2, got.Summary.High, "last write wins")
}

func TestCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewResultCache()
	require.NoError(t, c.Store(ctx, "fp1", &domain.ScanResult{}, time.Hour))
	require.NoError(t, c.Invalidate(ctx, "fp1"))
	_, ok, _ := c.Lookup(ctx, "fp1")
	assert.False(t, ok)
}
