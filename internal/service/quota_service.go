package service

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"bandhan-service/internal/apperror"
	"bandhan-service/internal/client"
	"bandhan-service/internal/config"
	"bandhan-service/internal/models"
	"bandhan-service/internal/quota"
	redisrepo "bandhan-service/internal/repository/redis"
	"bandhan-service/internal/util"
)

// Upsell choices a user can make on the limit-reached prompt.
const (
	UpsellChoiceUpgrade        = "upgrade"
	UpsellChoiceRemindTomorrow = "remind_tomorrow"
	UpsellChoiceSkip           = "skip"
)

// QuotaStatus is the wire-facing view of one action's daily counter.
type QuotaStatus struct {
	Action         quota.ActionType `json:"action"`
	Used           int              `json:"used"`
	Limit          int              `json:"limit"`
	Remaining      int              `json:"remaining"`
	PercentageUsed int              `json:"percentage_used"`
	Color          quota.ColorState `json:"color"`
	LimitReached   bool             `json:"limit_reached"`
	ReminderSet    bool             `json:"reminder_set"`
	ResetsAt       time.Time        `json:"resets_at"`
	ResetsIn       string           `json:"resets_in"`
}

// QuotaService owns the daily action limits. Counters live in Redis
// keyed by local calendar date; the consume path is atomic so racing
// requests can never exceed the limit.
type QuotaService struct {
	quotaCache  *redisrepo.QuotaCache
	upsellCache *redisrepo.UpsellCache
	audit       *AuditService
	limits      map[quota.ActionType]int
	location    *time.Location
}

func NewQuotaService(
	quotaCache *redisrepo.QuotaCache,
	upsellCache *redisrepo.UpsellCache,
	audit *AuditService,
	cfg *config.Config,
) *QuotaService {
	location, err := time.LoadLocation(cfg.Quota.Timezone)
	if err != nil {
		util.Warn("Invalid quota timezone, falling back to UTC",
			zap.String("timezone", cfg.Quota.Timezone),
			zap.Error(err))
		location = time.UTC
	}

	return &QuotaService{
		quotaCache:  quotaCache,
		upsellCache: upsellCache,
		audit:       audit,
		limits: map[quota.ActionType]int{
			quota.ActionProfiles: cfg.Quota.ProfileViews,
			quota.ActionChats:    cfg.Quota.ChatStarts,
			quota.ActionLikes:    cfg.Quota.Likes,
		},
		location: location,
	}
}

func (s *QuotaService) status(counter quota.Counter, action quota.ActionType, now time.Time) *QuotaStatus {
	resetsAt := quota.NextReset(now, s.location)
	return &QuotaStatus{
		Action:         action,
		Used:           counter.Used,
		Limit:          counter.Limit,
		Remaining:      counter.Remaining(),
		PercentageUsed: counter.PercentageUsed(),
		Color:          counter.ColorState(),
		LimitReached:   counter.IsLimitReached(),
		ResetsAt:       resetsAt,
		ResetsIn:       quota.FormatUntilReset(quota.TimeUntilReset(now, s.location)),
	}
}

// Status returns the current counter for one action without consuming.
func (s *QuotaService) Status(ctx context.Context, userID string, action quota.ActionType) (*QuotaStatus, error) {
	if !quota.ValidAction(action) {
		return nil, apperror.New(apperror.CodeInvalidInput, "unknown action type")
	}

	now := time.Now()
	dateKey := quota.DateKey(now, s.location)
	used, err := s.quotaCache.GetUsed(ctx, userID, action, dateKey)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to read quota", err)
	}

	status := s.status(quota.Counter{Used: used, Limit: s.limits[action]}, action, now)

	// The reminder flag is display-only; a read failure just hides it.
	reminder, err := s.quotaCache.HasReminder(ctx, userID, action, dateKey)
	if err != nil {
		util.Warn("Failed to read quota reminder",
			zap.String("user_id", userID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
	status.ReminderSet = reminder

	return status, nil
}

// StatusAll returns counters for every known action.
func (s *QuotaService) StatusAll(ctx context.Context, userID string) ([]*QuotaStatus, error) {
	actions := []quota.ActionType{quota.ActionProfiles, quota.ActionChats, quota.ActionLikes}

	statuses := make([]*QuotaStatus, 0, len(actions))
	for _, action := range actions {
		status, err := s.Status(ctx, userID, action)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

// Consume takes one unit of quota for the action. On exhaustion it
// returns a typed limit error carrying the reset countdown so clients
// can render the upsell prompt.
func (s *QuotaService) Consume(ctx context.Context, userID string, action quota.ActionType, ip net.IP, userAgent string) (*QuotaStatus, error) {
	if !quota.ValidAction(action) {
		return nil, apperror.New(apperror.CodeInvalidInput, "unknown action type")
	}

	now := time.Now()
	limit := s.limits[action]
	dateKey := quota.DateKey(now, s.location)
	ttl := quota.TimeUntilReset(now, s.location)

	used, consumed, err := s.quotaCache.Consume(ctx, userID, action, dateKey, limit, ttl)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to consume quota", err)
	}

	status := s.status(quota.Counter{Used: used, Limit: limit}, action, now)

	if !consumed {
		// Every denied attempt lands in the upsell ring; the prompt row
		// has no choice yet.
		if recErr := s.upsellCache.RecordChoice(ctx, &models.UpsellEvent{
			UserID:     userID,
			ActionType: string(action),
			OccurredAt: now.UTC(),
		}); recErr != nil {
			util.Warn("Failed to record limit-reached prompt",
				zap.String("user_id", userID),
				zap.String("action", string(action)),
				zap.Error(recErr))
		}

		s.audit.Publish(ctx, client.TopicQuotaExhausted, userID, map[string]interface{}{
			"user_id":     userID,
			"action_type": action,
			"limit":       limit,
			"date":        dateKey,
			"occurred_at": now.UTC(),
		})

		return status, apperror.New(apperror.CodeDailyLimitReached, "daily limit reached for "+string(action)).
			WithDetails(map[string]interface{}{
				"action":    action,
				"limit":     limit,
				"resets_at": status.ResetsAt,
				"resets_in": status.ResetsIn,
			}).
			WithAction("upgrade")
	}

	// The consume that takes the last unit marks the exhaustion moment
	if used == limit {
		if err := s.audit.Record(ctx, models.AuditDailyLimitExhausted, userID, "quota", string(action),
			map[string]interface{}{"limit": limit, "date": dateKey}, ip, userAgent); err != nil {
			util.Warn("Failed to audit limit exhaustion",
				zap.String("user_id", userID),
				zap.Error(err))
		}

		s.audit.Publish(ctx, client.TopicQuotaExhausted, userID, map[string]interface{}{
			"user_id":     userID,
			"action_type": action,
			"limit":       limit,
			"date":        dateKey,
			"occurred_at": now.UTC(),
		})
	}

	return status, nil
}

// RecordUpsellChoice stores the outcome of a limit-reached prompt.
func (s *QuotaService) RecordUpsellChoice(ctx context.Context, userID string, action quota.ActionType, choice string) error {
	if !quota.ValidAction(action) {
		return apperror.New(apperror.CodeInvalidInput, "unknown action type")
	}

	switch choice {
	case UpsellChoiceUpgrade, UpsellChoiceRemindTomorrow, UpsellChoiceSkip:
	default:
		return apperror.New(apperror.CodeInvalidInput, "unknown upsell choice")
	}

	now := time.Now()
	event := &models.UpsellEvent{
		UserID:     userID,
		ActionType: string(action),
		Choice:     choice,
		OccurredAt: now.UTC(),
	}

	if err := s.upsellCache.RecordChoice(ctx, event); err != nil {
		return apperror.Wrap(apperror.CodeInternal, "failed to record upsell choice", err)
	}

	if choice == UpsellChoiceRemindTomorrow {
		dateKey := quota.DateKey(now, s.location)
		ttl := quota.TimeUntilReset(now, s.location)
		if err := s.quotaCache.SetReminder(ctx, userID, action, dateKey, ttl); err != nil {
			util.Warn("Failed to set quota reminder",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}

	s.audit.Publish(ctx, client.TopicQuotaExhausted, userID, event)

	return nil
}

// RecentUpsellChoices returns the newest prompt outcomes for a user.
func (s *QuotaService) RecentUpsellChoices(ctx context.Context, userID string, limit int) ([]*models.UpsellEvent, error) {
	events, err := s.upsellCache.RecentChoices(ctx, userID, limit)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to read upsell events", err)
	}
	return events, nil
}
