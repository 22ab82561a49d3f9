package scylla

import (
	"fmt"

	"go.uber.org/zap"

	"bandhan-service/internal/models"
	"bandhan-service/internal/util"
)

// OTPRepository keeps the durable trail of OTP issuances for abuse
// investigation. Rows expire through the table TTL.
type OTPRepository struct {
	client *ScyllaClient
}

func NewOTPRepository(client *ScyllaClient, logger *zap.Logger) *OTPRepository {
	return &OTPRepository{
		client: client,
	}
}

func (r *OTPRepository) RecordIssuance(record *models.OTPVerification) error {
	query := r.client.Prepared.InsertOTPVerification.Bind(
		record.PhoneHash, record.TimeBucket, record.OTPHash, record.OTPSalt,
		record.HashAlgorithm, record.PepperVersion, record.Purpose,
		record.Attempts, record.ExpiresAt, record.IPAddress,
		record.ProviderUsed, record.CreatedAt)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to record OTP issuance",
			zap.String("phone_hash", record.PhoneHash),
			zap.Error(err))
		return fmt.Errorf("failed to record OTP issuance: %w", err)
	}

	return nil
}

// RecentIssuances returns the newest OTP records for a phone hash.
func (r *OTPRepository) RecentIssuances(phoneHash string, limit int) ([]*models.OTPVerification, error) {
	if limit <= 0 {
		limit = 20
	}

	iter := r.client.Prepared.GetOTPVerifications.Bind(phoneHash, limit).Iter()

	var records []*models.OTPVerification
	for {
		record := &models.OTPVerification{}
		if !iter.Scan(
			&record.PhoneHash, &record.TimeBucket, &record.OTPHash, &record.OTPSalt,
			&record.HashAlgorithm, &record.PepperVersion, &record.Purpose,
			&record.Attempts, &record.ExpiresAt, &record.IPAddress,
			&record.ProviderUsed, &record.CreatedAt) {
			break
		}
		records = append(records, record)
	}

	if err := iter.Close(); err != nil {
		util.Error("Failed to read OTP issuances",
			zap.String("phone_hash", phoneHash),
			zap.Error(err))
		return nil, fmt.Errorf("failed to read OTP issuances: %w", err)
	}

	return records, nil
}
