package models

import (
	"net"
	"time"
)

// Audit event types recorded for DPDP compliance.
const (
	AuditAgeRestrictionBlock = "age_restriction_block"
	AuditConsentGiven        = "consent_given"
	AuditConsentWithdrawn    = "consent_withdrawn"
	AuditPhoneVerified       = "phone_verified"
	AuditDigiLockerVerified  = "digilocker_verified"
	AuditVideoSelfieVerified = "video_selfie_verified"
	AuditDailyLimitExhausted = "daily_limit_exhausted"
)

// AuditEvent is an append-only compliance record. Events are never mutated or
// deleted by the application.
type AuditEvent struct {
	EventBucket int       `db:"event_bucket" json:"-"`
	EventDate   string    `db:"event_date" json:"event_date"`
	EventTime   time.Time `db:"event_time" json:"event_time"`
	EventType   string    `db:"event_type" json:"event_type"`
	UserID      string    `db:"user_id" json:"user_id"`
	EntityType  string    `db:"entity_type" json:"entity_type"`
	EntityID    string    `db:"entity_id" json:"entity_id"`
	Metadata    string    `db:"metadata" json:"metadata,omitempty"`
	IPAddress   net.IP    `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent   string    `db:"user_agent" json:"user_agent,omitempty"`
}
