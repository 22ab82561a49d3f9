package models

import (
	"encoding/json"
	"time"
)

// ConsentPurpose names a DPDP processing purpose.
type ConsentPurpose string

const (
	PurposeMatching   ConsentPurpose = "matching"
	PurposeMarketing  ConsentPurpose = "marketing"
	PurposeAnalytics  ConsentPurpose = "analytics"
	PurposeThirdParty ConsentPurpose = "third_party"
)

// ValidPurpose reports whether p is one of the known purposes.
func ValidPurpose(p ConsentPurpose) bool {
	switch p {
	case PurposeMatching, PurposeMarketing, PurposeAnalytics, PurposeThirdParty:
		return true
	}
	return false
}

// Consent is a single row of the append-only consent history. At most one row
// per user has ConsentWithdrawnAt unset; that row is the active consent.
type Consent struct {
	UserBucket         int        `db:"user_bucket" json:"-"`
	UserID             string     `db:"user_id" json:"user_id"`
	ConsentID          string     `db:"consent_id" json:"consent_id"`
	PurposeMatching    bool       `db:"purpose_matching" json:"purpose_matching"`
	PurposeMarketing   bool       `db:"purpose_marketing" json:"purpose_marketing"`
	PurposeAnalytics   bool       `db:"purpose_analytics" json:"purpose_analytics"`
	PurposeThirdParty  bool       `db:"purpose_third_party" json:"purpose_third_party"`
	ConsentGivenAt     time.Time  `db:"consent_given_at" json:"consent_given_at"`
	ConsentWithdrawnAt *time.Time `db:"consent_withdrawn_at" json:"consent_withdrawn_at,omitempty"`
	Version            string     `db:"version" json:"version"`
}

// IsActive reports whether this row is the non-withdrawn consent.
func (c *Consent) IsActive() bool {
	return c.ConsentWithdrawnAt == nil
}

// MarshalJSON adds the derived is_active flag so API consumers don't
// have to infer it from the withdrawal timestamp.
func (c *Consent) MarshalJSON() ([]byte, error) {
	type alias Consent
	return json.Marshal(struct {
		*alias
		IsActive bool `json:"is_active"`
	}{(*alias)(c), c.IsActive()})
}

// HasPurpose reports whether the given purpose flag is set.
func (c *Consent) HasPurpose(p ConsentPurpose) bool {
	switch p {
	case PurposeMatching:
		return c.PurposeMatching
	case PurposeMarketing:
		return c.PurposeMarketing
	case PurposeAnalytics:
		return c.PurposeAnalytics
	case PurposeThirdParty:
		return c.PurposeThirdParty
	}
	return false
}
