package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterAllowsUpToLimit(t *testing.T) {
	l := NewMemoryLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Check(ctx, "1.2.3.4")
		require.NoError(t, err)
		require.True(t, res.Allowed)
		require.Equal(t, 2-i, res.Remaining)
	}

	res, err := l.Check(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Equal(t, 0, res.Remaining)
	require.Greater(t, res.RetryAfter, time.Duration(0))
	require.LessOrEqual(t, res.RetryAfter, time.Minute)
}

func TestMemoryLimiterNewWindowAccepts(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	res, err := l.Check(ctx, "key")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = l.Check(ctx, "key")
	require.NoError(t, err)
	require.False(t, res.Allowed)

	// Advance past the window; the next request starts a fresh one.
	now = now.Add(time.Minute + time.Second)
	res, err = l.Check(ctx, "key")
	require.NoError(t, err)
	require.True(t, res.Allowed)
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	ctx := context.Background()

	res, _ := l.Check(ctx, "a")
	require.True(t, res.Allowed)
	res, _ = l.Check(ctx, "a")
	require.False(t, res.Allowed)

	res, _ = l.Check(ctx, "b")
	require.True(t, res.Allowed)
}

func TestMemoryLimiterSweepPrunesExpired(t *testing.T) {
	l := NewMemoryLimiter(5, time.Minute)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		_, err := l.Check(ctx, key)
		require.NoError(t, err)
	}
	require.Equal(t, 3, l.Len())

	now = now.Add(2 * time.Minute)
	l.mu.Lock()
	l.sweepLocked(now)
	l.mu.Unlock()

	require.Equal(t, 0, l.Len())
}
