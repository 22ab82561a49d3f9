package service

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"go.uber.org/zap"

	"bandhan-service/internal/apperror"
	"bandhan-service/internal/client"
	"bandhan-service/internal/encryption"
	"bandhan-service/internal/models"
	"bandhan-service/internal/repository/scylla"
	"bandhan-service/internal/token"
	"bandhan-service/internal/util"
	"bandhan-service/internal/verification"
)

// MaxVideoSelfieBytes caps the decoded liveness upload.
const MaxVideoSelfieBytes = 10 << 20 // 10 MB

var allowedVideoFormats = map[string]bool{
	"video/mp4":       true,
	"video/webm":      true,
	"video/quicktime": true,
}

// VerificationResult reports a completed step and the refreshed token
// carrying the new trust level.
type VerificationResult struct {
	Step      verification.Step `json:"step"`
	Tier      string            `json:"tier"`
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	User      *models.User      `json:"user"`
}

// VerificationStatus is the read-side view of a user's trust ladder.
type VerificationStatus struct {
	Tier                  string     `json:"tier"`
	VerificationLevel     int        `json:"verification_level"`
	IsPhoneVerified       bool       `json:"is_phone_verified"`
	IsAgeVerified         bool       `json:"is_age_verified"`
	PhoneVerifiedAt       *time.Time `json:"phone_verified_at,omitempty"`
	DigiLockerVerifiedAt  *time.Time `json:"digilocker_verified_at,omitempty"`
	VideoSelfieVerifiedAt *time.Time `json:"video_selfie_verified_at,omitempty"`
	NextStep              string     `json:"next_step,omitempty"`
}

// VerificationService runs the silver and gold verification steps.
// Ordering is enforced here: government ID needs a verified phone, and
// video liveness needs both earlier steps.
type VerificationService struct {
	userRepo         *scylla.UserRepository
	digilockerClient *client.DigiLockerClient
	encryptionMgr    *encryption.Manager
	tokenMgr         *token.Manager
	audit            *AuditService
}

func NewVerificationService(
	userRepo *scylla.UserRepository,
	digilockerClient *client.DigiLockerClient,
	encryptionMgr *encryption.Manager,
	tokenMgr *token.Manager,
	audit *AuditService,
) *VerificationService {
	return &VerificationService{
		userRepo:         userRepo,
		digilockerClient: digilockerClient,
		encryptionMgr:    encryptionMgr,
		tokenMgr:         tokenMgr,
		audit:            audit,
	}
}

// CompleteDigiLocker finishes the government-ID step from the OAuth
// callback. The verified date of birth is checked against the adult
// floor before anything is persisted; minors are blocked and the block
// is audited.
func (s *VerificationService) CompleteDigiLocker(ctx context.Context, userBucket int, userID, authCode string, ip net.IP, userAgent string) (*VerificationResult, error) {
	user, err := s.loadUser(userBucket, userID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.digilockerClient.ExchangeCode(ctx, authCode)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDigiLockerFailed, "DigiLocker token exchange failed", err)
	}

	profile, err := s.digilockerClient.FetchEKYC(ctx, accessToken)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDigiLockerFailed, "DigiLocker profile fetch failed", err)
	}

	dob, err := client.ParseDOB(profile.DateOfBirth)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDigiLockerFailed, "DigiLocker returned an unreadable date of birth", err)
	}

	now := time.Now().UTC()

	if !verification.IsAdult(dob, now) {
		if auditErr := s.audit.Record(ctx, models.AuditAgeRestrictionBlock, userID, "verification", string(verification.StepDigiLocker),
			map[string]interface{}{"age": verification.AgeInYears(dob, now)}, ip, userAgent); auditErr != nil {
			util.Error("Failed to audit age restriction block",
				zap.String("user_id", userID),
				zap.Error(auditErr))
		}
		return nil, apperror.New(apperror.CodeAgeRestrictionViolation, "users must be 18 or older")
	}

	evidence := verification.Evidence{
		PhoneVerifiedAt:       user.PhoneVerifiedAt,
		DigiLockerVerifiedAt:  user.DigiLockerVerifiedAt,
		VideoSelfieVerifiedAt: user.VideoSelfieVerifiedAt,
	}
	evidence, tier, err := verification.AttemptTransition(evidence, verification.StepDigiLocker, now)
	if err != nil {
		return nil, err
	}

	encrypted, err := s.encryptionMgr.EncryptField(ctx, dob.Format("2006-01-02"), encryption.PurposeDOB)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeEncryptionFailed, "failed to encrypt date of birth", err)
	}
	encryptedBytes, err := json.Marshal(encrypted)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeEncryptionFailed, "failed to encode encrypted date of birth", err)
	}

	firstCompletion := user.DigiLockerVerifiedAt == nil

	user.DOBEncrypted = encryptedBytes
	user.DOBKeyID = encrypted.KeyID
	user.IsAgeVerified = true
	user.DigiLockerVerifiedAt = evidence.DigiLockerVerifiedAt
	user.VerificationLevel = int(tier)

	if err := s.userRepo.UpdateDateOfBirth(user); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to persist date of birth", err)
	}
	if err := s.userRepo.UpdateVerification(user); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to persist verification", err)
	}

	if firstCompletion {
		if err := s.audit.Record(ctx, models.AuditDigiLockerVerified, userID, "verification", string(verification.StepDigiLocker),
			map[string]interface{}{"tier": tier.String(), "reference_id": profile.ReferenceID}, ip, userAgent); err != nil {
			return nil, apperror.Wrap(apperror.CodeInternal, "failed to audit verification", err)
		}

		s.audit.Publish(ctx, client.TopicVerificationCompleted, userID, map[string]interface{}{
			"user_id":      userID,
			"step":         verification.StepDigiLocker,
			"tier":         tier.String(),
			"completed_at": now,
		})
	}

	return s.result(user, verification.StepDigiLocker, tier)
}

// SubmitVideoSelfie runs the gold-tier liveness step. The upload is
// validated for size and container format before the tier advances.
func (s *VerificationService) SubmitVideoSelfie(ctx context.Context, userBucket int, userID, contentType string, sizeBytes int64, ip net.IP, userAgent string) (*VerificationResult, error) {
	if sizeBytes <= 0 {
		return nil, apperror.New(apperror.CodeInvalidInput, "empty video upload")
	}
	if sizeBytes > MaxVideoSelfieBytes {
		return nil, apperror.New(apperror.CodeVideoTooLarge, "video exceeds the 10MB limit").
			WithDetails(map[string]interface{}{
				"max_bytes": MaxVideoSelfieBytes,
				"got_bytes": sizeBytes,
			})
	}
	if !allowedVideoFormats[contentType] {
		return nil, apperror.New(apperror.CodeInvalidVideoFormat, "video must be mp4, webm or quicktime")
	}

	user, err := s.loadUser(userBucket, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	evidence := verification.Evidence{
		PhoneVerifiedAt:       user.PhoneVerifiedAt,
		DigiLockerVerifiedAt:  user.DigiLockerVerifiedAt,
		VideoSelfieVerifiedAt: user.VideoSelfieVerifiedAt,
	}
	evidence, tier, err := verification.AttemptTransition(evidence, verification.StepVideoSelfie, now)
	if err != nil {
		return nil, err
	}

	firstCompletion := user.VideoSelfieVerifiedAt == nil

	user.VideoSelfieVerifiedAt = evidence.VideoSelfieVerifiedAt
	user.VerificationLevel = int(tier)

	if err := s.userRepo.UpdateVerification(user); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to persist verification", err)
	}

	if firstCompletion {
		if err := s.audit.Record(ctx, models.AuditVideoSelfieVerified, userID, "verification", string(verification.StepVideoSelfie),
			map[string]interface{}{"tier": tier.String(), "content_type": contentType, "size_bytes": sizeBytes}, ip, userAgent); err != nil {
			return nil, apperror.Wrap(apperror.CodeInternal, "failed to audit verification", err)
		}

		s.audit.Publish(ctx, client.TopicVerificationCompleted, userID, map[string]interface{}{
			"user_id":      userID,
			"step":         verification.StepVideoSelfie,
			"tier":         tier.String(),
			"completed_at": now,
		})
	}

	return s.result(user, verification.StepVideoSelfie, tier)
}

// Status reports where the user sits on the trust ladder and which
// step comes next.
func (s *VerificationService) Status(ctx context.Context, userBucket int, userID string) (*VerificationStatus, error) {
	user, err := s.loadUser(userBucket, userID)
	if err != nil {
		return nil, err
	}

	evidence := verification.Evidence{
		PhoneVerifiedAt:       user.PhoneVerifiedAt,
		DigiLockerVerifiedAt:  user.DigiLockerVerifiedAt,
		VideoSelfieVerifiedAt: user.VideoSelfieVerifiedAt,
	}
	tier := verification.LevelFromEvidence(evidence)

	var nextStep string
	switch tier {
	case verification.TierNone:
		nextStep = string(verification.StepPhone)
	case verification.TierBronze:
		nextStep = string(verification.StepDigiLocker)
	case verification.TierSilver:
		nextStep = string(verification.StepVideoSelfie)
	}

	return &VerificationStatus{
		Tier:                  tier.String(),
		VerificationLevel:     int(tier),
		IsPhoneVerified:       user.IsPhoneVerified,
		IsAgeVerified:         user.IsAgeVerified,
		PhoneVerifiedAt:       user.PhoneVerifiedAt,
		DigiLockerVerifiedAt:  user.DigiLockerVerifiedAt,
		VideoSelfieVerifiedAt: user.VideoSelfieVerifiedAt,
		NextStep:              nextStep,
	}, nil
}

func (s *VerificationService) loadUser(userBucket int, userID string) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(userBucket, userID)
	if err != nil {
		if err == scylla.ErrUserNotFound {
			return nil, apperror.New(apperror.CodeUserNotFound, "user not found")
		}
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to load user", err)
	}
	return user, nil
}

// result re-mints the token so the client immediately carries the new
// trust level in its claims.
func (s *VerificationService) result(user *models.User, step verification.Step, tier verification.Tier) (*VerificationResult, error) {
	tokenStr, expiresAt, err := s.tokenMgr.Mint(user.UserID, user.PhoneHash, user.VerificationLevel)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to mint token", err)
	}

	util.Info("Verification step completed",
		zap.String("user_id", user.UserID),
		zap.String("step", string(step)),
		zap.String("tier", tier.String()))

	return &VerificationResult{
		Step:      step,
		Tier:      tier.String(),
		Token:     tokenStr,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}
