package service

import (
	"context"
	"errors"
	"net"
	"time"

	"bandhan-service/internal/apperror"
	"bandhan-service/internal/bucketing"
	"bandhan-service/internal/client"
	"bandhan-service/internal/models"
	"bandhan-service/internal/repository/scylla"
)

// ConsentVersion is the current consent document version presented to
// users. Bump it when the consent copy changes.
const ConsentVersion = "2025-08"

// ConsentGrantRequest carries the purpose flags the user agreed to.
type ConsentGrantRequest struct {
	Matching   bool `json:"matching"`
	Marketing  bool `json:"marketing"`
	Analytics  bool `json:"analytics"`
	ThirdParty bool `json:"third_party"`
}

// ConsentService maintains the append-only DPDP consent ledger. Every
// grant and withdrawal lands as a new history row; the current state is
// a materialized projection written in the same batch.
type ConsentService struct {
	consentRepo  *scylla.ConsentRepository
	audit        *AuditService
	bucketingMgr *bucketing.Manager
}

func NewConsentService(
	consentRepo *scylla.ConsentRepository,
	audit *AuditService,
	bucketingMgr *bucketing.Manager,
) *ConsentService {
	return &ConsentService{
		consentRepo:  consentRepo,
		audit:        audit,
		bucketingMgr: bucketingMgr,
	}
}

// Grant records a new consent. Matching consent is mandatory; the app
// cannot function without it, so a grant that omits it is rejected.
func (s *ConsentService) Grant(ctx context.Context, userID string, req *ConsentGrantRequest, ip net.IP, userAgent string) (*models.Consent, error) {
	if !req.Matching {
		return nil, apperror.New(apperror.CodeConsentRequired, "matching consent is required to use the service").
			WithAction("show_consent_screen")
	}

	now := time.Now().UTC()
	consent := &models.Consent{
		UserBucket:        s.userBucket(userID),
		UserID:            userID,
		PurposeMatching:   req.Matching,
		PurposeMarketing:  req.Marketing,
		PurposeAnalytics:  req.Analytics,
		PurposeThirdParty: req.ThirdParty,
		ConsentGivenAt:    now,
		Version:           ConsentVersion,
	}

	if err := s.consentRepo.Append(consent); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to record consent", err)
	}

	if err := s.audit.Record(ctx, models.AuditConsentGiven, userID, "consent", consent.ConsentID,
		map[string]interface{}{
			"matching":    req.Matching,
			"marketing":   req.Marketing,
			"analytics":   req.Analytics,
			"third_party": req.ThirdParty,
			"version":     ConsentVersion,
		}, ip, userAgent); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to audit consent", err)
	}

	s.audit.Publish(ctx, client.TopicConsentChanged, userID, consent)

	return consent, nil
}

// Withdraw closes the active consent. The history row keeps the
// original grant time with the withdrawal stamped on it.
func (s *ConsentService) Withdraw(ctx context.Context, userID string, ip net.IP, userAgent string) (*models.Consent, error) {
	current, err := s.consentRepo.GetCurrent(s.userBucket(userID), userID)
	if err != nil {
		if errors.Is(err, scylla.ErrConsentNotFound) {
			return nil, apperror.New(apperror.CodeConsentRequired, "no consent on record")
		}
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to read consent", err)
	}

	if !current.IsActive() {
		return nil, apperror.New(apperror.CodeConsentWithdrawn, "consent is already withdrawn")
	}

	now := time.Now().UTC()
	withdrawn := &models.Consent{
		UserBucket:         current.UserBucket,
		UserID:             current.UserID,
		PurposeMatching:    current.PurposeMatching,
		PurposeMarketing:   current.PurposeMarketing,
		PurposeAnalytics:   current.PurposeAnalytics,
		PurposeThirdParty:  current.PurposeThirdParty,
		ConsentGivenAt:     current.ConsentGivenAt,
		ConsentWithdrawnAt: &now,
		Version:            current.Version,
	}

	if err := s.consentRepo.Append(withdrawn); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to record withdrawal", err)
	}

	if err := s.audit.Record(ctx, models.AuditConsentWithdrawn, userID, "consent", withdrawn.ConsentID,
		map[string]interface{}{"version": withdrawn.Version}, ip, userAgent); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to audit withdrawal", err)
	}

	s.audit.Publish(ctx, client.TopicConsentChanged, userID, withdrawn)

	return withdrawn, nil
}

// Current returns the materialized consent state for a user.
func (s *ConsentService) Current(ctx context.Context, userID string) (*models.Consent, error) {
	current, err := s.consentRepo.GetCurrent(s.userBucket(userID), userID)
	if err != nil {
		if errors.Is(err, scylla.ErrConsentNotFound) {
			return nil, apperror.New(apperror.CodeConsentRequired, "no consent on record")
		}
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to read consent", err)
	}

	return current, nil
}

// History returns the newest ledger rows, most recent first.
func (s *ConsentService) History(ctx context.Context, userID string, limit int) ([]*models.Consent, error) {
	history, err := s.consentRepo.GetHistory(s.userBucket(userID), userID, limit)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to read consent history", err)
	}

	return history, nil
}

// RequireActive verifies the user has a live consent covering the
// purpose. Gated routes call this before doing any work.
func (s *ConsentService) RequireActive(ctx context.Context, userID string, purpose models.ConsentPurpose) error {
	current, err := s.Current(ctx, userID)
	if err != nil {
		return err
	}

	return consentGateError(current, purpose)
}

// consentGateError maps the current consent row onto the gate outcome.
// A withdrawn consent reads as CONSENT_REQUIRED, same as one that never
// covered the purpose: either way the client shows the consent screen.
func consentGateError(current *models.Consent, purpose models.ConsentPurpose) error {
	if !current.IsActive() {
		return apperror.New(apperror.CodeConsentRequired, "consent has been withdrawn").
			WithDetails(map[string]interface{}{
				"purpose":   purpose,
				"withdrawn": true,
			}).
			WithAction("show_consent_screen")
	}

	if !current.HasPurpose(purpose) {
		return apperror.New(apperror.CodeConsentRequired, "consent does not cover "+string(purpose)).
			WithDetails(map[string]interface{}{
				"purpose": purpose,
			}).
			WithAction("show_consent_screen")
	}

	return nil
}

func (s *ConsentService) userBucket(userID string) int {
	return s.bucketingMgr.GetUserBucket(userID)
}
