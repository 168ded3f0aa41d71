package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter stores attempt counters in Redis so multiple process instances
// share one view of the window.
type RedisLimiter struct {
	redis redis.UniversalClient
}

// NewRedisLimiter creates a Limiter backed by the given Redis client.
func NewRedisLimiter(client redis.UniversalClient) *RedisLimiter {
	return &RedisLimiter{redis: client}
}

// TooManyAttempts reports whether the key reached maxAttempts in the window.
func (l *RedisLimiter) TooManyAttempts(ctx context.Context, key string, maxAttempts int) (bool, error) {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("rate limiter unavailable: %w", err)
	}
	return count >= int64(maxAttempts), nil
}

// Hit records a failed attempt. Fixed-window semantics: the TTL is set only
// for the first hit in the window.
func (l *RedisLimiter) Hit(ctx context.Context, key string, decay time.Duration) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("rate limiter unavailable: %w", err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, decay).Err(); err != nil {
			return fmt.Errorf("rate limiter unavailable: %w", err)
		}
	}
	return nil
}

// Clear resets the counter for the key.
func (l *RedisLimiter) Clear(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("rate limiter unavailable: %w", err)
	}
	return nil
}
