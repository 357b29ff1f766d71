package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLimiter is an attempt counter backed by a shared Redis instance, for
// deployments where more than one process gates the same identifiers.
// Implements domain.AttemptLimiter.
type RedisLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	prefix      string
}

// NewRedisLimiter creates a Redis-backed attempt limiter.
func NewRedisLimiter(client *redis.Client, maxAttempts int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:      client,
		maxAttempts: maxAttempts,
		window:      window,
		prefix:      "signin_attempts",
	}
}

func (l *RedisLimiter) key(identifier string) string {
	return fmt.Sprintf("%s:%s", l.prefix, identifier)
}

// Allow increments the identifier's counter, arming the window expiry on
// first use. Redis evicts elapsed windows itself via the key TTL.
func (l *RedisLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	key := l.key(identifier)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("increment attempt counter: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("arm attempt window: %w", err)
		}
	}
	return count <= int64(l.maxAttempts), nil
}

// Clear deletes the identifier's counter.
func (l *RedisLimiter) Clear(ctx context.Context, identifier string) error {
	if err := l.client.Del(ctx, l.key(identifier)).Err(); err != nil {
		return fmt.Errorf("clear attempt counter: %w", err)
	}
	return nil
}

// ResetTime derives the window expiry from the key's remaining TTL.
func (l *RedisLimiter) ResetTime(ctx context.Context, identifier string) (int64, bool) {
	ttl, err := l.client.TTL(ctx, l.key(identifier)).Result()
	if err != nil || ttl <= 0 {
		return 0, false
	}
	return time.Now().Add(ttl).Unix(), true
}
