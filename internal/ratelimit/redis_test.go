package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/videocave/backend/internal/apperr"
)

func newLimiter(t *testing.T, max int, window time.Duration) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLimiter(client, max, window), mr
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newLimiter(t, 2, time.Minute)

	for i := 0; i < 2; i++ {
		if err := limiter.Allow(ctx, "forgot-password", "Alice@Example.com"); err != nil {
			t.Fatalf("attempt %d: unexpected error %v", i+1, err)
		}
	}

	err := limiter.Allow(ctx, "forgot-password", "alice@example.com")
	if !errors.Is(err, apperr.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	if err := limiter.Allow(ctx, "resend-verification", "alice@example.com"); err != nil {
		t.Fatalf("expected scopes to be independent, got %v", err)
	}

	ttl := mr.TTL(keyPrefix + "forgot-password:alice@example.com")
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected window ttl, got %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := limiter.Allow(ctx, "forgot-password", "alice@example.com"); err != nil {
		t.Fatalf("expected new window to allow, got %v", err)
	}
}

func TestRedisLimiterFailsOpen(t *testing.T) {
	limiter, mr := newLimiter(t, 1, time.Minute)
	mr.Close()

	if err := limiter.Allow(context.Background(), "forgot-password", "alice@example.com"); err != nil {
		t.Fatalf("expected limiter to fail open, got %v", err)
	}
}
