package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bandhan-service/internal/apperror"
	"bandhan-service/internal/client"
	"bandhan-service/internal/config"
	"bandhan-service/internal/quota"
	redisrepo "bandhan-service/internal/repository/redis"
)

func quotaTestConfig() *config.Config {
	return &config.Config{
		Quota: config.QuotaConfig{
			ProfileViews: 10,
			ChatStarts:   5,
			Likes:        20,
			Timezone:     "Asia/Kolkata",
		},
	}
}

func newQuotaServiceWithMock(t *testing.T) (*QuotaService, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	redisClient := &client.RedisClient{Client: db}

	svc := NewQuotaService(
		redisrepo.NewQuotaCache(redisClient),
		redisrepo.NewUpsellCache(redisClient),
		NewAuditService(nil, nil, nil, nil),
		quotaTestConfig(),
	)
	return svc, mock
}

// The Eval args carry a wall-clock derived TTL, so arg matching is relaxed
// to the command level.
func anyArgs(expected, actual []interface{}) error { return nil }

func TestQuotaServiceConsumeGrants(t *testing.T) {
	svc, mock := newQuotaServiceWithMock(t)

	mock.CustomMatch(anyArgs).
		ExpectEval(`script`, []string{`key`}, 10, int64(0)).
		SetVal([]interface{}{int64(4), int64(1)})

	status, err := svc.Consume(context.Background(), "user-1", quota.ActionProfiles, nil, "test-agent")
	require.NoError(t, err)
	assert.Equal(t, 4, status.Used)
	assert.Equal(t, 10, status.Limit)
	assert.Equal(t, 6, status.Remaining)
	assert.False(t, status.LimitReached)
	assert.True(t, status.ResetsAt.After(time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaServiceConsumeDeniedAtLimit(t *testing.T) {
	svc, mock := newQuotaServiceWithMock(t)

	mock.CustomMatch(anyArgs).
		ExpectEval(`script`, []string{`key`}, 5, int64(0)).
		SetVal([]interface{}{int64(5), int64(0)})

	// The denied attempt lands in the bounded upsell ring.
	mock.CustomMatch(anyArgs).
		ExpectLPush("upsell_events:user-1", `payload`).
		SetVal(1)
	mock.CustomMatch(anyArgs).
		ExpectLTrim("upsell_events:user-1", 0, 99).
		SetVal("OK")

	status, err := svc.Consume(context.Background(), "user-1", quota.ActionChats, nil, "test-agent")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeDailyLimitReached))

	appErr := apperror.From(err)
	assert.Equal(t, "upgrade", appErr.RequiresAction)
	assert.Equal(t, 5, appErr.Details["limit"])
	assert.NotEmpty(t, appErr.Details["resets_in"])

	// The denied status still reports the exhausted counter.
	require.NotNil(t, status)
	assert.True(t, status.LimitReached)
	assert.Equal(t, 0, status.Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaServiceConsumeRejectsUnknownAction(t *testing.T) {
	svc, _ := newQuotaServiceWithMock(t)

	_, err := svc.Consume(context.Background(), "user-1", quota.ActionType("superlikes"), nil, "test-agent")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidInput))
}

func TestQuotaServiceStatus(t *testing.T) {
	svc, mock := newQuotaServiceWithMock(t)

	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	dateKey := quota.DateKey(time.Now(), loc)

	mock.ExpectGet("quota:likes:user-1:" + dateKey).SetVal("18")
	mock.ExpectExists("quota_reminder:likes:user-1:" + dateKey).SetVal(1)

	status, err := svc.Status(context.Background(), "user-1", quota.ActionLikes)
	require.NoError(t, err)
	assert.Equal(t, 18, status.Used)
	assert.Equal(t, 20, status.Limit)
	assert.Equal(t, 2, status.Remaining)
	assert.Equal(t, quota.ColorRed, status.Color)
	assert.True(t, status.ReminderSet)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaServiceStatusAllCoversEveryAction(t *testing.T) {
	svc, mock := newQuotaServiceWithMock(t)

	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	dateKey := quota.DateKey(time.Now(), loc)

	mock.ExpectGet("quota:profiles:user-1:" + dateKey).SetVal("2")
	mock.ExpectExists("quota_reminder:profiles:user-1:" + dateKey).SetVal(0)
	mock.ExpectGet("quota:chats:user-1:" + dateKey).RedisNil()
	mock.ExpectExists("quota_reminder:chats:user-1:" + dateKey).SetVal(0)
	mock.ExpectGet("quota:likes:user-1:" + dateKey).SetVal("20")
	mock.ExpectExists("quota_reminder:likes:user-1:" + dateKey).SetVal(0)

	statuses, err := svc.StatusAll(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	byAction := map[quota.ActionType]*QuotaStatus{}
	for _, s := range statuses {
		byAction[s.Action] = s
	}
	assert.Equal(t, 2, byAction[quota.ActionProfiles].Used)
	assert.Equal(t, 0, byAction[quota.ActionChats].Used)
	assert.True(t, byAction[quota.ActionLikes].LimitReached)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaServiceRecordUpsellChoiceValidation(t *testing.T) {
	svc, _ := newQuotaServiceWithMock(t)

	err := svc.RecordUpsellChoice(context.Background(), "user-1", quota.ActionProfiles, "buy_now")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidInput))

	err = svc.RecordUpsellChoice(context.Background(), "user-1", quota.ActionType("bogus"), UpsellChoiceSkip)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidInput))
}

func TestQuotaServiceRecordUpsellChoiceSkip(t *testing.T) {
	svc, mock := newQuotaServiceWithMock(t)

	mock.CustomMatch(anyArgs).ExpectLPush("upsell_events:user-1", "payload").SetVal(1)
	mock.ExpectLTrim("upsell_events:user-1", 0, 99).SetVal("OK")

	err := svc.RecordUpsellChoice(context.Background(), "user-1", quota.ActionProfiles, UpsellChoiceSkip)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaServiceRecordRemindTomorrowSetsReminder(t *testing.T) {
	svc, mock := newQuotaServiceWithMock(t)

	mock.CustomMatch(anyArgs).ExpectLPush("upsell_events:user-1", "payload").SetVal(1)
	mock.ExpectLTrim("upsell_events:user-1", 0, 99).SetVal("OK")
	mock.CustomMatch(anyArgs).ExpectSet("reminder", "ts", time.Hour).SetVal("OK")

	err := svc.RecordUpsellChoice(context.Background(), "user-1", quota.ActionLikes, UpsellChoiceRemindTomorrow)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
