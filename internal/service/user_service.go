package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"bandhan-service/internal/apperror"
	"bandhan-service/internal/encryption"
	"bandhan-service/internal/models"
	"bandhan-service/internal/repository/scylla"
	"bandhan-service/internal/util"
	"bandhan-service/internal/verification"
)

// Profile is the authenticated user's own view: identity state, trust
// tier, today's quotas and the consent summary in one payload.
type Profile struct {
	User        *models.User    `json:"user"`
	Tier        string          `json:"tier"`
	PhoneMasked string          `json:"phone_masked,omitempty"`
	Quotas      []*QuotaStatus  `json:"quotas"`
	Consent     *models.Consent `json:"consent,omitempty"`
}

// UserService serves the profile surface.
type UserService struct {
	userRepo       *scylla.UserRepository
	quotaService   *QuotaService
	consentService *ConsentService
	encryptionMgr  *encryption.Manager
}

func NewUserService(
	userRepo *scylla.UserRepository,
	quotaService *QuotaService,
	consentService *ConsentService,
	encryptionMgr *encryption.Manager,
) *UserService {
	return &UserService{
		userRepo:       userRepo,
		quotaService:   quotaService,
		consentService: consentService,
		encryptionMgr:  encryptionMgr,
	}
}

// GetProfile assembles the authenticated user's own record. A missing
// consent row is fine for a fresh account; the client shows the consent
// screen when the field is absent.
func (s *UserService) GetProfile(ctx context.Context, userBucket int, userID string) (*Profile, error) {
	user, err := s.userRepo.GetUserByID(userBucket, userID)
	if err != nil {
		if errors.Is(err, scylla.ErrUserNotFound) {
			return nil, apperror.New(apperror.CodeUserNotFound, "user not found")
		}
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to load user", err)
	}

	quotas, err := s.quotaService.StatusAll(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &Profile{
		User:        user,
		Tier:        verification.Tier(user.VerificationLevel).String(),
		PhoneMasked: s.maskedPhone(ctx, user),
		Quotas:      quotas,
	}

	consent, err := s.consentService.Current(ctx, userID)
	if err == nil {
		profile.Consent = consent
	} else if !apperror.Is(err, apperror.CodeConsentRequired) {
		return nil, err
	}

	return profile, nil
}

// maskedPhone decrypts the stored phone number for display with all
// but the country code and last four digits hidden. The plain number
// never appears in the payload; a decrypt failure just drops the field.
func (s *UserService) maskedPhone(ctx context.Context, user *models.User) string {
	if len(user.PhoneEncrypted) == 0 {
		return ""
	}

	var encrypted encryption.EncryptedData
	if err := json.Unmarshal(user.PhoneEncrypted, &encrypted); err != nil {
		util.Warn("Invalid encrypted phone payload",
			zap.String("user_id", user.UserID),
			zap.Error(err))
		return ""
	}

	phone, err := s.encryptionMgr.DecryptField(ctx, &encrypted)
	if err != nil {
		util.Warn("Failed to decrypt phone for display",
			zap.String("user_id", user.UserID),
			zap.Error(err))
		return ""
	}

	return maskPhone(phone)
}

// maskPhone keeps the country code and the last four digits visible.
func maskPhone(phone string) string {
	if len(phone) < 8 {
		return ""
	}
	return phone[:3] + strings.Repeat("*", len(phone)-7) + phone[len(phone)-4:]
}
