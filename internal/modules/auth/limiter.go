package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const limiterKeyPrefix = "videohub:login:"

// RedisLimiter counts failed logins per identifier in a fixed window. When
// Redis is unreachable it logs and lets the attempt through.
type RedisLimiter struct {
	redis       redis.UniversalClient
	maxAttempts int
	window      time.Duration
	log         *slog.Logger
}

func NewRedisLimiter(client redis.UniversalClient, maxAttempts int, window time.Duration, log *slog.Logger) *RedisLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &RedisLimiter{redis: client, maxAttempts: maxAttempts, window: window, log: log}
}

func (l *RedisLimiter) Blocked(ctx context.Context, key string) bool {
	count, err := l.redis.Get(ctx, limiterKeyPrefix+key).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			l.log.WarnContext(ctx, "login limiter unavailable", "error", err)
		}
		return false
	}
	return count >= int64(l.maxAttempts)
}

func (l *RedisLimiter) RecordFailure(ctx context.Context, key string) {
	k := limiterKeyPrefix + key
	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		l.log.WarnContext(ctx, "login limiter unavailable", "error", err)
		return
	}
	// Fixed window: the first failure starts the clock.
	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.window).Err(); err != nil {
			l.log.WarnContext(ctx, "login limiter unavailable", "error", err)
		}
	}
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) {
	if err := l.redis.Del(ctx, limiterKeyPrefix+key).Err(); err != nil {
		l.log.WarnContext(ctx, "login limiter unavailable", "error", err)
	}
}

// NoopLimiter never throttles. Used when no Redis address is configured.
type NoopLimiter struct{}

func (NoopLimiter) Blocked(context.Context, string) bool {
	return false
}

func (NoopLimiter) RecordFailure(context.Context, string) {}

func (NoopLimiter) Reset(context.Context, string) {}
