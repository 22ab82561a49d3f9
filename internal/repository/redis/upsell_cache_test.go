package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bandhan-service/internal/client"
	"bandhan-service/internal/models"
)

func newMockedUpsellCache(t *testing.T) (*UpsellCache, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	return NewUpsellCache(&client.RedisClient{Client: db}), mock
}

func TestUpsellCacheRecordChoiceTrimsRing(t *testing.T) {
	cache, mock := newMockedUpsellCache(t)

	event := &models.UpsellEvent{
		UserID:     "user-1",
		ActionType: "profiles",
		Choice:     "upgrade",
		OccurredAt: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	mock.ExpectLPush("upsell_events:user-1", payload).SetVal(1)
	mock.ExpectLTrim("upsell_events:user-1", 0, upsellMaxEntries-1).SetVal("OK")

	require.NoError(t, cache.RecordChoice(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsellCacheRecentChoices(t *testing.T) {
	cache, mock := newMockedUpsellCache(t)

	first, _ := json.Marshal(&models.UpsellEvent{UserID: "user-1", ActionType: "likes", Choice: "skip"})
	second, _ := json.Marshal(&models.UpsellEvent{UserID: "user-1", ActionType: "chats", Choice: "remind_tomorrow"})

	mock.ExpectLRange("upsell_events:user-1", 0, 1).SetVal([]string{string(first), string(second)})

	events, err := cache.RecentChoices(context.Background(), "user-1", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "skip", events[0].Choice)
	assert.Equal(t, "remind_tomorrow", events[1].Choice)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsellCacheRecentChoicesSkipsMalformedEntries(t *testing.T) {
	cache, mock := newMockedUpsellCache(t)

	good, _ := json.Marshal(&models.UpsellEvent{UserID: "user-1", ActionType: "profiles", Choice: "upgrade"})

	mock.ExpectLRange("upsell_events:user-1", 0, 2).SetVal([]string{string(good), "{broken", string(good)})

	events, err := cache.RecentChoices(context.Background(), "user-1", 3)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
