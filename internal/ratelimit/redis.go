package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter backed by a shared Redis counter,
// for deployments running more than one relay instance.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisLimiter connects to Redis and returns a shared-counter limiter.
func NewRedisLimiter(redisURL string, limit int, window time.Duration) (*RedisLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "chat:rl:",
	}, nil
}

// Check increments key's window counter and reads its TTL for the retry hint.
func (l *RedisLimiter) Check(ctx context.Context, key string) (Result, error) {
	rkey := l.prefix + key

	count, err := l.client.Incr(ctx, rkey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit incr: %w", err)
	}

	// First hit in a window starts the clock.
	if count == 1 {
		if err := l.client.Expire(ctx, rkey, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	if int(count) > l.limit {
		ttl, err := l.client.TTL(ctx, rkey).Result()
		if err != nil || ttl < 0 {
			ttl = l.window
		}
		return Result{Allowed: false, Remaining: 0, RetryAfter: ttl}, nil
	}

	return Result{Allowed: true, Remaining: l.limit - int(count)}, nil
}

// Close releases the Redis connection.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
