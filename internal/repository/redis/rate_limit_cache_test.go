package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bandhan-service/internal/client"
)

func newMockedRateLimitCache(t *testing.T) (*RateLimitCache, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	return NewRateLimitCache(&client.RedisClient{Client: db}), mock
}

func TestRateLimitCacheAllowUnderLimit(t *testing.T) {
	cache, mock := newMockedRateLimitCache(t)

	key := "rate_limit:otp_ip:10.0.0.1"
	mock.ExpectTxPipeline()
	mock.ExpectIncr(key).SetVal(3)
	mock.ExpectExpire(key, time.Hour).SetVal(true)
	mock.ExpectTxPipelineExec()

	allowed, count, err := cache.Allow(context.Background(), "otp_ip", "10.0.0.1", 20, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitCacheDeniesOverLimit(t *testing.T) {
	cache, mock := newMockedRateLimitCache(t)

	key := "rate_limit:otp_ip:10.0.0.1"
	mock.ExpectTxPipeline()
	mock.ExpectIncr(key).SetVal(21)
	mock.ExpectExpire(key, time.Hour).SetVal(true)
	mock.ExpectTxPipelineExec()

	allowed, count, err := cache.Allow(context.Background(), "otp_ip", "10.0.0.1", 20, time.Hour)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 21, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
