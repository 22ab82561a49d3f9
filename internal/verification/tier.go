// Package verification implements the trust-tier state machine and the exact
// calendar-age computation backing the age gate.
package verification

import (
	"time"

	"bandhan-service/internal/apperror"
)

// Tier is a user's trust level. Tiers are monotone: once earned, a tier is
// never taken away.
type Tier int

const (
	TierNone Tier = iota
	TierBronze
	TierSilver
	TierGold
)

func (t Tier) String() string {
	switch t {
	case TierBronze:
		return "bronze"
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	default:
		return "unverified"
	}
}

// Evidence is the set of completed verification steps for a user.
type Evidence struct {
	PhoneVerifiedAt       *time.Time
	DigiLockerVerifiedAt  *time.Time
	VideoSelfieVerifiedAt *time.Time
}

// Step names one verification route's contribution.
type Step string

const (
	StepPhone       Step = "phone"
	StepDigiLocker  Step = "digilocker"
	StepVideoSelfie Step = "video_selfie"
)

// LevelFromEvidence derives the tier from the evidence alone, independent of
// the order the routes were called in. Silver and gold require the superior
// evidence to exist; phone evidence is implied by either.
func LevelFromEvidence(e Evidence) Tier {
	tier := TierNone
	if e.PhoneVerifiedAt != nil {
		tier = TierBronze
	}
	if e.DigiLockerVerifiedAt != nil && tier >= TierBronze {
		tier = TierSilver
	}
	if e.VideoSelfieVerifiedAt != nil && tier >= TierSilver {
		tier = TierGold
	}
	return tier
}

// AttemptTransition validates that the step may be applied given the existing
// evidence, applies it at now, and returns the resulting tier. Out-of-order
// evidence is rejected: government-ID requires a verified phone, and video
// liveness requires both. Re-submitting an already-completed step is a no-op
// that keeps the earlier timestamp.
func AttemptTransition(e Evidence, step Step, now time.Time) (Evidence, Tier, error) {
	switch step {
	case StepPhone:
		if e.PhoneVerifiedAt == nil {
			e.PhoneVerifiedAt = &now
		}
	case StepDigiLocker:
		if e.PhoneVerifiedAt == nil {
			return e, LevelFromEvidence(e), apperror.New(apperror.CodeVerificationOrderViolation,
				"phone verification must be completed before government-ID verification")
		}
		if e.DigiLockerVerifiedAt == nil {
			e.DigiLockerVerifiedAt = &now
		}
	case StepVideoSelfie:
		if e.PhoneVerifiedAt == nil || e.DigiLockerVerifiedAt == nil {
			return e, LevelFromEvidence(e), apperror.New(apperror.CodeVerificationOrderViolation,
				"phone and government-ID verification must be completed before video liveness")
		}
		if e.VideoSelfieVerifiedAt == nil {
			e.VideoSelfieVerifiedAt = &now
		}
	default:
		return e, LevelFromEvidence(e), apperror.New(apperror.CodeInvalidInput, "unknown verification step")
	}
	return e, LevelFromEvidence(e), nil
}
