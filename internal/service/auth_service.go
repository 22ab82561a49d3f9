package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bandhan-service/internal/apperror"
	"bandhan-service/internal/bucketing"
	"bandhan-service/internal/client"
	"bandhan-service/internal/config"
	"bandhan-service/internal/countdown"
	"bandhan-service/internal/encryption"
	"bandhan-service/internal/hashing"
	"bandhan-service/internal/models"
	redisrepo "bandhan-service/internal/repository/redis"
	"bandhan-service/internal/repository/scylla"
	"bandhan-service/internal/token"
	"bandhan-service/internal/util"
	"bandhan-service/internal/verification"
)

const (
	otpLength        = 6
	otpRequestsPerIP = 20
	otpPurposeLogin  = "login"
)

var phonePattern = regexp.MustCompile(`^\+91[6-9][0-9]{9}$`)

// OTPRequest asks for a login code on an Indian mobile number.
type OTPRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
}

// OTPChallenge reports the issued challenge and its timers.
type OTPChallenge struct {
	ExpiresAt       time.Time `json:"expires_at"`
	ExpiresInSecs   int       `json:"expires_in_seconds"`
	ResendAvailable time.Time `json:"resend_available_at"`
	ResendIn        string    `json:"resend_in"`
}

// OTPVerifyRequest carries the code the user typed.
type OTPVerifyRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
}

// AuthResult is a successful login: a minted token plus the user row.
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
	NewUser   bool         `json:"new_user"`
}

// AuthService owns the phone-OTP login flow. The OTP itself lives only
// in Redis as an Argon2id hash; the phone number is stored encrypted
// with a deterministic lookup hash.
type AuthService struct {
	userRepo       *scylla.UserRepository
	otpRepo        *scylla.OTPRepository
	otpCache       *redisrepo.OTPCache
	rateLimitCache *redisrepo.RateLimitCache
	hasher         *hashing.Hasher
	encryptionMgr  *encryption.Manager
	bucketingMgr   *bucketing.Manager
	smsClient      *client.SMSClient
	tokenMgr       *token.Manager
	audit          *AuditService
	otpConfig      *config.OTPConfig
}

func NewAuthService(
	userRepo *scylla.UserRepository,
	otpRepo *scylla.OTPRepository,
	otpCache *redisrepo.OTPCache,
	rateLimitCache *redisrepo.RateLimitCache,
	hasher *hashing.Hasher,
	encryptionMgr *encryption.Manager,
	bucketingMgr *bucketing.Manager,
	smsClient *client.SMSClient,
	tokenMgr *token.Manager,
	audit *AuditService,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		otpRepo:        otpRepo,
		otpCache:       otpCache,
		rateLimitCache: rateLimitCache,
		hasher:         hasher,
		encryptionMgr:  encryptionMgr,
		bucketingMgr:   bucketingMgr,
		smsClient:      smsClient,
		tokenMgr:       tokenMgr,
		audit:          audit,
		otpConfig:      &cfg.OTP,
	}
}

// RequestOTP issues a login code, subject to the per-IP rate limit, the
// per-phone hourly cap, and the resend cooldown.
func (s *AuthService) RequestOTP(ctx context.Context, phoneNumber string, ip net.IP) (*OTPChallenge, error) {
	if !phonePattern.MatchString(phoneNumber) {
		return nil, apperror.New(apperror.CodeInvalidInput, "phone number must be a +91 Indian mobile number")
	}

	phoneHash := s.hasher.HashPhone(phoneNumber)

	if ip != nil {
		allowed, _, err := s.rateLimitCache.Allow(ctx, "otp_ip", ip.String(), otpRequestsPerIP, time.Hour)
		if err != nil {
			return nil, apperror.Wrap(apperror.CodeInternal, "failed to check rate limit", err)
		}
		if !allowed {
			return nil, apperror.New(apperror.CodeRateLimitExceeded, "too many OTP requests from this address")
		}
	}

	granted, err := s.otpCache.SetResendCooldown(phoneHash, s.otpConfig.ResendCooldown)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to start resend cooldown", err)
	}
	if !granted {
		remaining, _ := s.otpCache.ResendCooldownRemaining(phoneHash)
		return nil, apperror.New(apperror.CodeRateLimitExceeded, "please wait before requesting another code").
			WithDetails(map[string]interface{}{
				"retry_in_seconds": int(remaining / time.Second),
			})
	}

	sends, err := s.otpCache.IncrementHourlySends(phoneHash)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to check hourly cap", err)
	}
	if sends > s.otpConfig.MaxPerHour {
		return nil, apperror.New(apperror.CodeRateLimitExceeded, "hourly OTP limit reached for this number")
	}

	code, err := generateOTP(otpLength)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to generate code", err)
	}

	hashResult, err := s.hasher.HashOTP(code)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to hash code", err)
	}

	if err := s.otpCache.SetOTP(phoneHash, hashResult, s.otpConfig.TTL); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to store challenge", err)
	}
	if err := s.otpCache.ResetAttempts(phoneHash); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to reset attempts", err)
	}

	now := time.Now().UTC()
	record := &models.OTPVerification{
		PhoneHash:     phoneHash,
		TimeBucket:    s.bucketingMgr.GetTimeBucket(300),
		CreatedAt:     now,
		OTPHash:       hashResult.Hash,
		OTPSalt:       hashResult.Salt,
		HashAlgorithm: hashResult.Algorithm,
		PepperVersion: hashResult.PepperVersion,
		Purpose:       otpPurposeLogin,
		ExpiresAt:     now.Add(s.otpConfig.TTL),
		IPAddress:     ip,
		ProviderUsed:  s.smsClient.Provider(),
	}
	if err := s.otpRepo.RecordIssuance(record); err != nil {
		// Keep the login path alive; the durable trail is best effort
		util.Warn("Failed to record OTP issuance",
			zap.String("phone_hash", phoneHash),
			zap.Error(err))
	}

	if err := s.smsClient.SendOTP(ctx, phoneNumber, code); err != nil {
		util.Error("Failed to deliver OTP",
			zap.String("phone_hash", phoneHash),
			zap.Error(err))
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to deliver code", err)
	}

	resendTimer := countdown.New(s.otpConfig.ResendCooldown, now)

	return &OTPChallenge{
		ExpiresAt:       now.Add(s.otpConfig.TTL),
		ExpiresInSecs:   int(s.otpConfig.TTL / time.Second),
		ResendAvailable: now.Add(s.otpConfig.ResendCooldown),
		ResendIn:        resendTimer.Formatted(now),
	}, nil
}

// ResendState reports the countdown until another code may be sent.
func (s *AuthService) ResendState(ctx context.Context, phoneNumber string) (*OTPChallenge, error) {
	if !phonePattern.MatchString(phoneNumber) {
		return nil, apperror.New(apperror.CodeInvalidInput, "phone number must be a +91 Indian mobile number")
	}

	phoneHash := s.hasher.HashPhone(phoneNumber)
	now := time.Now().UTC()

	startedAt, running, err := s.otpCache.CooldownStartedAt(phoneHash)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to read cooldown", err)
	}

	challenge := &OTPChallenge{}
	if running {
		timer := countdown.New(s.otpConfig.ResendCooldown, startedAt)
		challenge.ResendAvailable = startedAt.Add(s.otpConfig.ResendCooldown)
		challenge.ResendIn = timer.Formatted(now)
	} else {
		challenge.ResendAvailable = now
		challenge.ResendIn = countdown.New(0, now).Formatted(now)
	}

	return challenge, nil
}

// VerifyOTP checks the submitted code and, on success, logs the user in
// and marks the phone verification step complete. First-time numbers
// get a user row created.
func (s *AuthService) VerifyOTP(ctx context.Context, phoneNumber, code string, ip net.IP, userAgent string) (*AuthResult, error) {
	if !phonePattern.MatchString(phoneNumber) {
		return nil, apperror.New(apperror.CodeInvalidInput, "phone number must be a +91 Indian mobile number")
	}

	phoneHash := s.hasher.HashPhone(phoneNumber)

	attempts, err := s.otpCache.IncrementAttempts(phoneHash, s.otpConfig.TTL)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to track attempts", err)
	}
	if attempts > s.otpConfig.MaxAttempts {
		return nil, apperror.New(apperror.CodeRateLimitExceeded, "too many incorrect attempts, request a new code")
	}

	stored, err := s.otpCache.GetOTP(phoneHash)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to load challenge", err)
	}
	if stored == nil {
		return nil, apperror.New(apperror.CodeOTPExpired, "code has expired, request a new one")
	}

	ok, err := s.hasher.VerifyOTP(code, stored)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to verify code", err)
	}
	if !ok {
		remaining := s.otpConfig.MaxAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		return nil, apperror.New(apperror.CodeOTPVerificationFailed, "incorrect code").
			WithDetails(map[string]interface{}{
				"attempts_remaining": remaining,
			})
	}

	if err := s.otpCache.DeleteOTP(phoneHash); err != nil {
		util.Warn("Failed to delete spent OTP", zap.Error(err))
	}
	if err := s.otpCache.ResetAttempts(phoneHash); err != nil {
		util.Warn("Failed to reset OTP attempts", zap.Error(err))
	}

	user, newUser, err := s.findOrCreateUser(ctx, phoneNumber, phoneHash)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	evidence := verification.Evidence{
		PhoneVerifiedAt:       user.PhoneVerifiedAt,
		DigiLockerVerifiedAt:  user.DigiLockerVerifiedAt,
		VideoSelfieVerifiedAt: user.VideoSelfieVerifiedAt,
	}
	evidence, tier, err := verification.AttemptTransition(evidence, verification.StepPhone, now)
	if err != nil {
		return nil, err
	}

	firstPhoneVerify := !user.IsPhoneVerified
	user.IsPhoneVerified = true
	user.PhoneVerifiedAt = evidence.PhoneVerifiedAt
	user.VerificationLevel = int(tier)

	if err := s.userRepo.UpdateVerification(user); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to persist verification", err)
	}
	if err := s.userRepo.UpdateLastLogin(user.UserBucket, user.UserID, now); err != nil {
		util.Warn("Failed to update last login",
			zap.String("user_id", user.UserID),
			zap.Error(err))
	}
	user.LastLogin = &now

	if firstPhoneVerify {
		if err := s.audit.Record(ctx, models.AuditPhoneVerified, user.UserID, "verification", string(verification.StepPhone),
			map[string]interface{}{"tier": tier.String()}, ip, userAgent); err != nil {
			return nil, apperror.Wrap(apperror.CodeInternal, "failed to audit verification", err)
		}

		s.audit.Publish(ctx, client.TopicVerificationCompleted, user.UserID, map[string]interface{}{
			"user_id":      user.UserID,
			"step":         verification.StepPhone,
			"tier":         tier.String(),
			"completed_at": now,
		})
	}

	tokenStr, expiresAt, err := s.tokenMgr.Mint(user.UserID, phoneHash, user.VerificationLevel)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to mint token", err)
	}

	util.Info("User logged in",
		zap.String("user_id", user.UserID),
		zap.Bool("new_user", newUser),
		zap.String("tier", tier.String()))

	return &AuthResult{
		Token:     tokenStr,
		ExpiresAt: expiresAt,
		User:      user,
		NewUser:   newUser,
	}, nil
}

func (s *AuthService) findOrCreateUser(ctx context.Context, phoneNumber, phoneHash string) (*models.User, bool, error) {
	userBucket, userID, err := s.userRepo.LookupByPhone(phoneHash)
	if err == nil {
		user, err := s.userRepo.GetUserByID(userBucket, userID)
		if err != nil {
			return nil, false, apperror.Wrap(apperror.CodeInternal, "failed to load user", err)
		}
		return user, false, nil
	}
	if !errors.Is(err, scylla.ErrUserNotFound) {
		return nil, false, apperror.Wrap(apperror.CodeInternal, "failed to look up user", err)
	}

	encrypted, err := s.encryptionMgr.EncryptField(ctx, phoneNumber, encryption.PurposePhone)
	if err != nil {
		return nil, false, apperror.Wrap(apperror.CodeEncryptionFailed, "failed to encrypt phone number", err)
	}
	encryptedBytes, err := json.Marshal(encrypted)
	if err != nil {
		return nil, false, apperror.Wrap(apperror.CodeEncryptionFailed, "failed to encode encrypted phone", err)
	}

	newID := uuid.New().String()
	user := &models.User{
		UserBucket:     s.bucketingMgr.GetUserBucket(newID),
		UserID:         newID,
		PhoneHash:      phoneHash,
		PhoneEncrypted: encryptedBytes,
		PhoneKeyID:     encrypted.KeyID,
	}

	if err := s.userRepo.CreateUser(user); err != nil {
		return nil, false, apperror.Wrap(apperror.CodeInternal, "failed to create user", err)
	}

	return user, true, nil
}

func generateOTP(length int) (string, error) {
	const digits = "0123456789"
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", fmt.Errorf("failed to draw random digit: %w", err)
		}
		code[i] = digits[n.Int64()]
	}
	return string(code), nil
}
