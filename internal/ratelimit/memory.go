package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type entry struct {
	count       int
	windowReset time.Time
}

// MemoryLimiter is an in-process fixed-window limiter. Counts are per key,
// monotonic within a window, and lost on restart. Not safe across multiple
// process instances; each instance keeps its own table.
type MemoryLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	entries map[string]*entry

	now func() time.Time
}

// NewMemoryLimiter creates a memory limiter allowing limit requests per window.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Check counts a request against key's current window.
func (l *MemoryLimiter) Check(_ context.Context, key string) (Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Opportunistic sweep: roughly one check in 64 prunes expired entries so
	// the table stays bounded without a background goroutine.
	if rand.Intn(64) == 0 {
		l.sweepLocked(now)
	}

	e, ok := l.entries[key]
	if !ok || now.After(e.windowReset) {
		e = &entry{count: 0, windowReset: now.Add(l.window)}
		l.entries[key] = e
	}

	if e.count >= l.limit {
		return Result{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: e.windowReset.Sub(now),
		}, nil
	}

	e.count++
	return Result{
		Allowed:   true,
		Remaining: l.limit - e.count,
	}, nil
}

func (l *MemoryLimiter) sweepLocked(now time.Time) {
	for key, e := range l.entries {
		if now.After(e.windowReset) {
			delete(l.entries, key)
		}
	}
}

// Len reports the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
