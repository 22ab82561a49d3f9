package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bandhan-service/internal/client"
	"bandhan-service/internal/quota"
)

func newMockedQuotaCache(t *testing.T) (*QuotaCache, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	return NewQuotaCache(&client.RedisClient{Client: db}), mock
}

func TestQuotaCacheConsumeGrantsUnit(t *testing.T) {
	cache, mock := newMockedQuotaCache(t)

	key := quotaKey("user-1", quota.ActionProfiles, "2026-03-15")
	mock.ExpectEval(quotaConsumeScript, []string{key}, 10, int64(1800)).
		SetVal([]interface{}{int64(3), int64(1)})

	used, consumed, err := cache.Consume(context.Background(), "user-1", quota.ActionProfiles, "2026-03-15", 10, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, used)
	assert.True(t, consumed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaCacheConsumeDeniesAtLimit(t *testing.T) {
	cache, mock := newMockedQuotaCache(t)

	key := quotaKey("user-1", quota.ActionLikes, "2026-03-15")
	mock.ExpectEval(quotaConsumeScript, []string{key}, 20, int64(3600)).
		SetVal([]interface{}{int64(20), int64(0)})

	used, consumed, err := cache.Consume(context.Background(), "user-1", quota.ActionLikes, "2026-03-15", 20, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 20, used)
	assert.False(t, consumed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaCacheConsumeClampsTinyTTL(t *testing.T) {
	cache, mock := newMockedQuotaCache(t)

	// A consume right before midnight still sets a positive expiry.
	key := quotaKey("user-1", quota.ActionChats, "2026-03-15")
	mock.ExpectEval(quotaConsumeScript, []string{key}, 5, int64(1)).
		SetVal([]interface{}{int64(1), int64(1)})

	_, consumed, err := cache.Consume(context.Background(), "user-1", quota.ActionChats, "2026-03-15", 5, 200*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaCacheGetUsed(t *testing.T) {
	cache, mock := newMockedQuotaCache(t)

	key := quotaKey("user-1", quota.ActionProfiles, "2026-03-15")
	mock.ExpectGet(key).SetVal("7")

	used, err := cache.GetUsed(context.Background(), "user-1", quota.ActionProfiles, "2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, 7, used)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaCacheGetUsedMissingKeyIsZero(t *testing.T) {
	cache, mock := newMockedQuotaCache(t)

	key := quotaKey("user-1", quota.ActionProfiles, "2026-03-16")
	mock.ExpectGet(key).RedisNil()

	used, err := cache.GetUsed(context.Background(), "user-1", quota.ActionProfiles, "2026-03-16")
	require.NoError(t, err)
	assert.Equal(t, 0, used)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaCacheKeyIncludesDate(t *testing.T) {
	yesterday := quotaKey("user-1", quota.ActionProfiles, "2026-03-15")
	today := quotaKey("user-1", quota.ActionProfiles, "2026-03-16")

	// A new day reads a fresh key, so counters reset without any sweep.
	assert.NotEqual(t, yesterday, today)
	assert.Equal(t, "quota:profiles:user-1:2026-03-15", yesterday)
}
