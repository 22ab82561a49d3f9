package scylla

import (
	"errors"
	"fmt"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"bandhan-service/internal/models"
	"bandhan-service/internal/util"
)

var ErrConsentNotFound = errors.New("consent not found")

// ConsentRepository stores the append-only consent ledger plus the
// materialized current row. Both writes go through one logged batch so
// the projection can never drift from the history.
type ConsentRepository struct {
	client *ScyllaClient
}

func NewConsentRepository(client *ScyllaClient, logger *zap.Logger) *ConsentRepository {
	return &ConsentRepository{
		client: client,
	}
}

// Append writes a new consent state. The consent_id is a timeuuid so
// history rows cluster in event order.
func (r *ConsentRepository) Append(consent *models.Consent) error {
	consentID := gocql.TimeUUID()
	consent.ConsentID = consentID.String()

	batch := r.client.Session.NewBatch(gocql.LoggedBatch)

	batch.Query(r.client.Prepared.InsertConsentHistory.Statement(),
		consent.UserBucket, consent.UserID, consentID,
		consent.PurposeMatching, consent.PurposeMarketing,
		consent.PurposeAnalytics, consent.PurposeThirdParty,
		consent.ConsentGivenAt, consent.ConsentWithdrawnAt, consent.Version)

	batch.Query(r.client.Prepared.UpsertConsentCurrent.Statement(),
		consent.UserBucket, consent.UserID, consentID,
		consent.PurposeMatching, consent.PurposeMarketing,
		consent.PurposeAnalytics, consent.PurposeThirdParty,
		consent.ConsentGivenAt, consent.ConsentWithdrawnAt, consent.Version)

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to append consent",
			zap.String("user_id", consent.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to append consent: %w", err)
	}

	util.Info("Consent appended",
		zap.String("user_id", consent.UserID),
		zap.String("consent_id", consent.ConsentID),
		zap.Bool("active", consent.IsActive()))

	return nil
}

// GetCurrent returns the materialized current consent for a user.
func (r *ConsentRepository) GetCurrent(userBucket int, userID string) (*models.Consent, error) {
	consent := &models.Consent{}
	var consentID gocql.UUID

	query := r.client.Prepared.GetConsentCurrent.Bind(userBucket, userID)

	err := r.client.ScanWithRetry(query,
		&consent.UserBucket, &consent.UserID, &consentID,
		&consent.PurposeMatching, &consent.PurposeMarketing,
		&consent.PurposeAnalytics, &consent.PurposeThirdParty,
		&consent.ConsentGivenAt, &consent.ConsentWithdrawnAt, &consent.Version)

	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrConsentNotFound
		}
		util.Error("Failed to get current consent",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get current consent: %w", err)
	}

	consent.ConsentID = consentID.String()
	return consent, nil
}

// GetHistory returns the newest consent rows, most recent first.
func (r *ConsentRepository) GetHistory(userBucket int, userID string, limit int) ([]*models.Consent, error) {
	if limit <= 0 {
		limit = 50
	}

	iter := r.client.Prepared.GetConsentHistory.Bind(userBucket, userID, limit).Iter()

	var history []*models.Consent
	for {
		consent := &models.Consent{}
		var consentID gocql.UUID

		if !iter.Scan(
			&consent.UserBucket, &consent.UserID, &consentID,
			&consent.PurposeMatching, &consent.PurposeMarketing,
			&consent.PurposeAnalytics, &consent.PurposeThirdParty,
			&consent.ConsentGivenAt, &consent.ConsentWithdrawnAt, &consent.Version) {
			break
		}

		consent.ConsentID = consentID.String()
		history = append(history, consent)
	}

	if err := iter.Close(); err != nil {
		util.Error("Failed to read consent history",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to read consent history: %w", err)
	}

	return history, nil
}
