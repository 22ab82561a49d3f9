package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bandhan-service/internal/client"
	"bandhan-service/internal/util"
)

const rateLimitPrefix = "rate_limit:"

// RateLimitCache tracks request counts per scope and identifier over a
// fixed window. Used for per-IP and per-phone OTP request limiting.
type RateLimitCache struct {
	client *client.RedisClient
}

func NewRateLimitCache(client *client.RedisClient) *RateLimitCache {
	return &RateLimitCache{client: client}
}

// Allow records one request and reports whether the caller is still
// within limit for the window.
func (c *RateLimitCache) Allow(ctx context.Context, scope, identifier string, limit int, window time.Duration) (bool, int, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := fmt.Sprintf("%s%s:%s", rateLimitPrefix, scope, identifier)

	count, err := c.client.IncrWithExpire(opCtx, key, window)
	if err != nil {
		util.Error("Failed to increment rate limit counter",
			zap.String("scope", scope),
			zap.Error(err))
		return false, 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	if int(count) > limit {
		util.Warn("Rate limit exceeded",
			zap.String("scope", scope),
			zap.Int64("count", count),
			zap.Int("limit", limit))
		return false, int(count), nil
	}

	return true, int(count), nil
}

// Remaining returns how long until the window resets.
func (c *RateLimitCache) Remaining(ctx context.Context, scope, identifier string) (time.Duration, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := fmt.Sprintf("%s%s:%s", rateLimitPrefix, scope, identifier)

	ttl, err := c.client.TTL(opCtx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to get rate limit TTL: %w", err)
	}
	if ttl < 0 {
		return 0, nil
	}

	return ttl, nil
}
