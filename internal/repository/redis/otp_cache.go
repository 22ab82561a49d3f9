package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bandhan-service/internal/client"
	"bandhan-service/internal/hashing"
	"bandhan-service/internal/util"
)

const (
	otpPrefix         = "otp:"
	otpAttemptPrefix  = "otp_attempts:"
	otpCooldownPrefix = "otp_cooldown:"
	otpHourlyPrefix   = "otp_hourly:"
)

// OTPCache stores in-flight OTP challenges keyed by phone hash. The
// plain phone number never reaches Redis.
type OTPCache struct {
	client *client.RedisClient
}

func NewOTPCache(client *client.RedisClient) *OTPCache {
	return &OTPCache{client: client}
}

func (c *OTPCache) SetOTP(phoneHash string, result *hashing.HashResult, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode OTP hash: %w", err)
	}

	key := otpPrefix + phoneHash
	if err := c.client.Set(ctx, key, payload, ttl); err != nil {
		util.Error("Failed to set OTP in cache",
			zap.String("phone_hash", phoneHash),
			zap.Duration("ttl", ttl),
			zap.Error(err))
		return fmt.Errorf("failed to set OTP in cache: %w", err)
	}

	util.Debug("OTP cached",
		zap.String("phone_hash", phoneHash),
		zap.Duration("ttl", ttl))
	return nil
}

// GetOTP returns the stored OTP hash, or (nil, nil) when the challenge
// has expired or never existed.
func (c *OTPCache) GetOTP(phoneHash string) (*hashing.HashResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := otpPrefix + phoneHash

	payload, err := c.client.Get(ctx, key)
	if err != nil {
		if err == client.ErrKeyNotFound {
			return nil, nil
		}
		util.Error("Failed to get OTP from cache",
			zap.String("phone_hash", phoneHash),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get OTP from cache: %w", err)
	}

	var result hashing.HashResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("invalid OTP cache payload: %w", err)
	}

	return &result, nil
}

func (c *OTPCache) DeleteOTP(phoneHash string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := otpPrefix + phoneHash

	if err := c.client.Del(ctx, key); err != nil {
		util.Error("Failed to delete OTP from cache",
			zap.String("phone_hash", phoneHash),
			zap.Error(err))
		return fmt.Errorf("failed to delete OTP from cache: %w", err)
	}

	return nil
}

func (c *OTPCache) IncrementAttempts(phoneHash string, ttl time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := otpAttemptPrefix + phoneHash

	count, err := c.client.IncrWithExpire(ctx, key, ttl)
	if err != nil {
		util.Error("Failed to increment OTP attempts",
			zap.String("phone_hash", phoneHash),
			zap.Error(err))
		return 0, fmt.Errorf("failed to increment OTP attempts: %w", err)
	}

	return int(count), nil
}

func (c *OTPCache) ResetAttempts(phoneHash string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := otpAttemptPrefix + phoneHash

	if err := c.client.Del(ctx, key); err != nil {
		util.Error("Failed to reset OTP attempts",
			zap.String("phone_hash", phoneHash),
			zap.Error(err))
		return fmt.Errorf("failed to reset OTP attempts: %w", err)
	}

	return nil
}

// SetResendCooldown marks the start of the resend window. Returns false
// when a cooldown is already running.
func (c *OTPCache) SetResendCooldown(phoneHash string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := otpCooldownPrefix + phoneHash

	ok, err := c.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339Nano), ttl)
	if err != nil {
		util.Error("Failed to set OTP resend cooldown",
			zap.String("phone_hash", phoneHash),
			zap.Error(err))
		return false, fmt.Errorf("failed to set OTP resend cooldown: %w", err)
	}

	return ok, nil
}

// ResendCooldownRemaining returns how long until resend is allowed.
// Zero means no cooldown is running.
func (c *OTPCache) ResendCooldownRemaining(phoneHash string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := otpCooldownPrefix + phoneHash

	ttl, err := c.client.TTL(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to get OTP resend cooldown: %w", err)
	}
	if ttl < 0 {
		return 0, nil
	}

	return ttl, nil
}

// CooldownStartedAt returns when the current resend cooldown began.
func (c *OTPCache) CooldownStartedAt(phoneHash string) (time.Time, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := otpCooldownPrefix + phoneHash

	value, err := c.client.Get(ctx, key)
	if err != nil {
		if err == client.ErrKeyNotFound {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to get OTP cooldown start: %w", err)
	}

	startedAt, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid cooldown timestamp: %w", err)
	}

	return startedAt, true, nil
}

// IncrementHourlySends bumps the rolling hourly send counter used to
// cap OTP volume per phone.
func (c *OTPCache) IncrementHourlySends(phoneHash string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := otpHourlyPrefix + phoneHash

	count, err := c.client.IncrWithExpire(ctx, key, time.Hour)
	if err != nil {
		util.Error("Failed to increment hourly OTP sends",
			zap.String("phone_hash", phoneHash),
			zap.Error(err))
		return 0, fmt.Errorf("failed to increment hourly OTP sends: %w", err)
	}

	return int(count), nil
}
