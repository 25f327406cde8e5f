// Package ratelimit provides fixed-window request limiting for the chat relay.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of a limiter check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether a request identified by key may proceed. State is
// best-effort: backings may lose counts on restart.
type Limiter interface {
	Check(ctx context.Context, key string) (Result, error)
}
