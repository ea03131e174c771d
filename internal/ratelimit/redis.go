// Package ratelimit throttles mail-sending operations per recipient using a
// fixed window counter in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/logging"
)

const keyPrefix = "videocave:mail:"

// RedisLimiter allows at most Max events per Window for each scope and subject.
type RedisLimiter struct {
	redis  redis.Cmdable
	max    int64
	window time.Duration
}

// NewRedisLimiter returns a limiter backed by client.
func NewRedisLimiter(client redis.Cmdable, max int, window time.Duration) *RedisLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{redis: client, max: int64(max), window: window}
}

// NewClient parses url and returns a connected client.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Allow records one event for subject in scope and fails with
// apperr.ErrRateLimited once the window's budget is spent. Redis failures are
// logged and let the event through.
func (l *RedisLimiter) Allow(ctx context.Context, scope, subject string) error {
	key := keyPrefix + scope + ":" + strings.ToLower(strings.TrimSpace(subject))

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		logging.FromContext(ctx).Warn("mail throttle unavailable", "scope", scope, "error", err)
		return nil
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			logging.FromContext(ctx).Warn("mail throttle expire failed", "scope", scope, "error", err)
		}
	}
	if count > l.max {
		return apperr.New(apperr.ErrRateLimited, "too many requests, please try again later")
	}
	return nil
}
