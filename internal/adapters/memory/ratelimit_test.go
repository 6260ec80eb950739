package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitOf(n int) func(string) int {
	return func(string) int { return n }
}

func TestLimitPlusOneIsDenied(t *testing.T) {
	ctx := context.Background()
	l := NewRateLimiter(limitOf(5))

	for i := 0; i < 5; i++ {
		d, err := l.CheckAndRecord(ctx, "u1", "free", "scan:submit")
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d should pass", i+1)
		assert.Equal(t, 5-(i+1), d.Remaining)
	}

	d, err := l.CheckAndRecord(ctx, "u1", "free", "scan:submit")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.False(t, d.ResetAt.IsZero())
}

func TestUsersAndEndpointsAreIndependent(t *testing.T) {
	ctx := context.Background()
	l := NewRateLimiter(limitOf(1))

	d, _ := l.CheckAndRecord(ctx, "u1", "free", "scan:submit")
	require.True(t, d.Allowed)
	d, _ = l.CheckAndRecord(ctx, "u1", "free", "scan:submit")
	require.False(t, d.Allowed)

	d, _ = l.CheckAndRecord(ctx, "u2", "free", "scan:submit")
	assert.True(t, d.Allowed, "a different user has their own window")
	d, _ = l.CheckAndRecord(ctx, "u1", "free", "scan:list")
	assert.True(t, d.Allowed, "a different endpoint has its own window")
}

func TestWindowResets(t *testing.T) {
	ctx := context.Background()
	l := NewRateLimiter(limitOf(1))
	now := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	l.SetNow(func() time.Time { return now })

	d, _ := l.CheckAndRecord(ctx, "u1", "free", "scan:submit")
	require.True(t, d.Allowed)
	d, _ = l.CheckAndRecord(ctx, "u1", "free", "scan:submit")
	require.False(t, d.Allowed)
	assert.Equal(t, 30*time.Minute, d.RetryAfter)

	now = now.Add(time.Hour)
	d, _ = l.CheckAndRecord(ctx, "u1", "free", "scan:submit")
	assert.True(t, d.Allowed, "next bucket starts fresh")
}

func TestCheckAndRecordIsAtomicUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	const limit = 20
	const attempts = 100
	l := NewRateLimiter(limitOf(limit))

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.CheckAndRecord(ctx, "u1", "pro", "scan:submit")
			if err == nil && d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, allowed, "exactly limit requests may pass")
}
