package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"bandhan-service/internal/client"
	"bandhan-service/internal/quota"
	"bandhan-service/internal/util"
)

const (
	quotaPrefix         = "quota:"
	quotaReminderPrefix = "quota_reminder:"
)

// quotaConsumeScript increments the day's counter only while it is
// below the limit. Returns {used, consumed} so concurrent callers can
// never push the counter past the limit.
const quotaConsumeScript = `
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if current >= limit then
  return {current, 0}
end
current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('EXPIRE', KEYS[1], tonumber(ARGV[2]))
end
return {current, 1}
`

// QuotaCache holds the per-user daily action counters. Keys carry the
// local calendar date so a new day starts with fresh counters, and the
// TTL is set to the next local midnight as a safety net.
type QuotaCache struct {
	client *client.RedisClient
}

func NewQuotaCache(client *client.RedisClient) *QuotaCache {
	return &QuotaCache{client: client}
}

func quotaKey(userID string, action quota.ActionType, dateKey string) string {
	return fmt.Sprintf("%s%s:%s:%s", quotaPrefix, action, userID, dateKey)
}

// Consume atomically takes one unit of quota. It returns the used count
// after the call and whether the unit was granted.
func (c *QuotaCache) Consume(ctx context.Context, userID string, action quota.ActionType, dateKey string, limit int, ttl time.Duration) (int, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := quotaKey(userID, action, dateKey)
	ttlSeconds := int64(ttl / time.Second)
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	result, err := c.client.Eval(opCtx, quotaConsumeScript, []string{key}, limit, ttlSeconds)
	if err != nil {
		util.Error("Failed to consume quota",
			zap.String("user_id", userID),
			zap.String("action", string(action)),
			zap.Error(err))
		return 0, false, fmt.Errorf("failed to consume quota: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return 0, false, fmt.Errorf("unexpected quota script result: %v", result)
	}

	used := int(values[0].(int64))
	consumed := values[1].(int64) == 1

	util.Debug("Quota consume",
		zap.String("user_id", userID),
		zap.String("action", string(action)),
		zap.Int("used", used),
		zap.Bool("consumed", consumed))

	return used, consumed, nil
}

// GetUsed returns the used count for a user, action and date.
func (c *QuotaCache) GetUsed(ctx context.Context, userID string, action quota.ActionType, dateKey string) (int, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := quotaKey(userID, action, dateKey)

	countStr, err := c.client.Get(opCtx, key)
	if err != nil {
		if err == client.ErrKeyNotFound {
			return 0, nil // No usage today
		}
		return 0, fmt.Errorf("failed to get quota usage: %w", err)
	}

	used, err := strconv.Atoi(countStr)
	if err != nil {
		util.Error("Invalid quota counter format",
			zap.String("key", key),
			zap.String("count_str", countStr),
			zap.Error(err))
		return 0, fmt.Errorf("invalid quota counter format: %w", err)
	}

	return used, nil
}

// SetReminder records a remind-tomorrow choice. The key expires at the
// next local midnight alongside the counter it refers to.
func (c *QuotaCache) SetReminder(ctx context.Context, userID string, action quota.ActionType, dateKey string, ttl time.Duration) error {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := fmt.Sprintf("%s%s:%s:%s", quotaReminderPrefix, action, userID, dateKey)

	if err := c.client.Set(opCtx, key, time.Now().UTC().Format(time.RFC3339), ttl); err != nil {
		util.Error("Failed to set quota reminder",
			zap.String("user_id", userID),
			zap.String("action", string(action)),
			zap.Error(err))
		return fmt.Errorf("failed to set quota reminder: %w", err)
	}

	return nil
}

// HasReminder reports whether the user asked to be reminded tomorrow.
func (c *QuotaCache) HasReminder(ctx context.Context, userID string, action quota.ActionType, dateKey string) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := fmt.Sprintf("%s%s:%s:%s", quotaReminderPrefix, action, userID, dateKey)

	exists, err := c.client.Exists(opCtx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check quota reminder: %w", err)
	}

	return exists, nil
}
