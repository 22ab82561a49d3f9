package scylla

import (
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bandhan-service/internal/models"
	"bandhan-service/internal/util"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	client *ScyllaClient
}

func NewUserRepository(client *ScyllaClient, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		client: client,
	}
}

func (r *UserRepository) CreateUser(user *models.User) error {
	if user.UserID == "" {
		user.UserID = uuid.New().String()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = &now

	// Batch keeps the users row and the phone lookup row consistent
	batch := r.client.Session.NewBatch(gocql.LoggedBatch)

	batch.Query(r.client.Prepared.CreateUser.Statement(),
		user.UserBucket, user.UserID, user.PhoneHash, user.PhoneEncrypted, user.PhoneKeyID,
		user.DOBEncrypted, user.DOBKeyID, user.IsPhoneVerified, user.IsAgeVerified,
		user.PhoneVerifiedAt, user.DigiLockerVerifiedAt, user.VideoSelfieVerifiedAt,
		user.VerificationLevel, user.CreatedAt, user.UpdatedAt, user.LastLogin)

	batch.Query(r.client.Prepared.CreatePhoneToUser.Statement(),
		user.PhoneHash, user.UserBucket, user.UserID, user.CreatedAt)

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to create user",
			zap.String("user_id", user.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	util.Info("User created successfully",
		zap.String("user_id", user.UserID),
		zap.Int("user_bucket", user.UserBucket))

	return nil
}

func (r *UserRepository) GetUserByID(userBucket int, userID string) (*models.User, error) {
	user := &models.User{}

	query := r.client.Prepared.GetUserByID.Bind(userBucket, userID)

	err := r.client.ScanWithRetry(query,
		&user.UserBucket, &user.UserID, &user.PhoneHash, &user.PhoneEncrypted, &user.PhoneKeyID,
		&user.DOBEncrypted, &user.DOBKeyID, &user.IsPhoneVerified, &user.IsAgeVerified,
		&user.PhoneVerifiedAt, &user.DigiLockerVerifiedAt, &user.VideoSelfieVerifiedAt,
		&user.VerificationLevel, &user.CreatedAt, &user.UpdatedAt, &user.LastLogin)

	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrUserNotFound
		}
		util.Error("Failed to get user by ID",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// LookupByPhone resolves a phone hash to the owning user's partition.
func (r *UserRepository) LookupByPhone(phoneHash string) (userBucket int, userID string, err error) {
	query := r.client.Prepared.GetUserByPhone.Bind(phoneHash)

	err = r.client.ScanWithRetry(query, &userBucket, &userID)
	if err != nil {
		if err == gocql.ErrNotFound {
			return 0, "", ErrUserNotFound
		}
		util.Error("Failed to look up user by phone",
			zap.Error(err))
		return 0, "", fmt.Errorf("failed to look up user by phone: %w", err)
	}

	return userBucket, userID, nil
}

// UpdateVerification persists a new verification state. The level only
// moves forward; callers enforce the ordering before writing.
func (r *UserRepository) UpdateVerification(user *models.User) error {
	now := time.Now().UTC()
	user.UpdatedAt = &now

	query := r.client.Prepared.UpdateVerification.Bind(
		user.IsPhoneVerified, user.PhoneVerifiedAt,
		user.DigiLockerVerifiedAt, user.VideoSelfieVerifiedAt,
		user.VerificationLevel, user.UpdatedAt,
		user.UserBucket, user.UserID)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to update verification state",
			zap.String("user_id", user.UserID),
			zap.Int("verification_level", user.VerificationLevel),
			zap.Error(err))
		return fmt.Errorf("failed to update verification state: %w", err)
	}

	util.Info("Verification state updated",
		zap.String("user_id", user.UserID),
		zap.Int("verification_level", user.VerificationLevel))

	return nil
}

// UpdateDateOfBirth stores the encrypted DOB after a DigiLocker check.
func (r *UserRepository) UpdateDateOfBirth(user *models.User) error {
	now := time.Now().UTC()
	user.UpdatedAt = &now

	query := r.client.Prepared.UpdateDateOfBirth.Bind(
		user.DOBEncrypted, user.DOBKeyID, user.IsAgeVerified, user.UpdatedAt,
		user.UserBucket, user.UserID)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to update date of birth",
			zap.String("user_id", user.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to update date of birth: %w", err)
	}

	return nil
}

func (r *UserRepository) UpdateLastLogin(userBucket int, userID string, at time.Time) error {
	query := r.client.Prepared.UpdateUserLastLogin.Bind(at, userBucket, userID)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to update last login",
			zap.String("user_id", userID),
			zap.Error(err))
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}
