package models

import "time"

// User is the server-authoritative identity record. Verification fields are
// mutated only by the verification routes and the level never decreases.
type User struct {
	UserBucket            int        `db:"user_bucket" json:"-"`
	UserID                string     `db:"user_id" json:"user_id"`
	PhoneHash             string     `db:"phone_hash" json:"-"`
	PhoneEncrypted        []byte     `db:"phone_encrypted" json:"-"`
	PhoneKeyID            string     `db:"phone_key_id" json:"-"`
	DOBEncrypted          []byte     `db:"dob_encrypted" json:"-"`
	DOBKeyID              string     `db:"dob_key_id" json:"-"`
	DateOfBirth           *time.Time `db:"-" json:"-"` // decrypted in memory only
	IsPhoneVerified       bool       `db:"is_phone_verified" json:"is_phone_verified"`
	IsAgeVerified         bool       `db:"is_age_verified" json:"is_age_verified"`
	PhoneVerifiedAt       *time.Time `db:"phone_verified_at" json:"phone_verified_at,omitempty"`
	DigiLockerVerifiedAt  *time.Time `db:"digilocker_verified_at" json:"digilocker_verified_at,omitempty"`
	VideoSelfieVerifiedAt *time.Time `db:"video_selfie_verified_at" json:"video_selfie_verified_at,omitempty"`
	VerificationLevel     int        `db:"verification_level" json:"verification_level"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             *time.Time `db:"updated_at" json:"updated_at,omitempty"`
	LastLogin             *time.Time `db:"last_login" json:"last_login,omitempty"`
}
