package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bandhan-service/internal/client"
	"bandhan-service/internal/models"
	"bandhan-service/internal/util"
)

const (
	upsellPrefix     = "upsell_events:"
	upsellMaxEntries = 100
)

// UpsellCache keeps the most recent upsell prompt outcomes per user in
// a capped Redis list. Older entries fall off the end.
type UpsellCache struct {
	client *client.RedisClient
}

func NewUpsellCache(client *client.RedisClient) *UpsellCache {
	return &UpsellCache{client: client}
}

// RecordChoice pushes an upsell outcome onto the user's ring and trims
// the list to the newest entries.
func (c *UpsellCache) RecordChoice(ctx context.Context, event *models.UpsellEvent) error {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode upsell event: %w", err)
	}

	key := upsellPrefix + event.UserID

	if err := c.client.LPush(opCtx, key, payload); err != nil {
		util.Error("Failed to record upsell choice",
			zap.String("user_id", event.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to record upsell choice: %w", err)
	}

	if err := c.client.LTrim(opCtx, key, 0, upsellMaxEntries-1); err != nil {
		util.Error("Failed to trim upsell events",
			zap.String("user_id", event.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to trim upsell events: %w", err)
	}

	return nil
}

// RecentChoices returns the newest upsell outcomes, most recent first.
func (c *UpsellCache) RecentChoices(ctx context.Context, userID string, limit int) ([]*models.UpsellEvent, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 || limit > upsellMaxEntries {
		limit = upsellMaxEntries
	}

	key := upsellPrefix + userID

	entries, err := c.client.LRange(opCtx, key, 0, int64(limit-1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upsell events: %w", err)
	}

	events := make([]*models.UpsellEvent, 0, len(entries))
	for _, entry := range entries {
		var event models.UpsellEvent
		if err := json.Unmarshal([]byte(entry), &event); err != nil {
			util.Warn("Skipping malformed upsell event",
				zap.String("user_id", userID),
				zap.Error(err))
			continue
		}
		events = append(events, &event)
	}

	return events, nil
}
