package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bandhan-service/internal/apperror"
)

func TestLevelFromEvidence(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		evidence Evidence
		expected Tier
	}{
		{"no evidence", Evidence{}, TierNone},
		{"phone only", Evidence{PhoneVerifiedAt: &now}, TierBronze},
		{"phone and digilocker", Evidence{PhoneVerifiedAt: &now, DigiLockerVerifiedAt: &now}, TierSilver},
		{"all three", Evidence{PhoneVerifiedAt: &now, DigiLockerVerifiedAt: &now, VideoSelfieVerifiedAt: &now}, TierGold},
		{"digilocker without phone stays unverified", Evidence{DigiLockerVerifiedAt: &now}, TierNone},
		{"video without digilocker stays bronze", Evidence{PhoneVerifiedAt: &now, VideoSelfieVerifiedAt: &now}, TierBronze},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LevelFromEvidence(tt.evidence))
		})
	}
}

func TestAttemptTransitionHappyPath(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	e, tier, err := AttemptTransition(Evidence{}, StepPhone, now)
	require.NoError(t, err)
	assert.Equal(t, TierBronze, tier)

	e, tier, err = AttemptTransition(e, StepDigiLocker, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, TierSilver, tier)

	e, tier, err = AttemptTransition(e, StepVideoSelfie, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, TierGold, tier)
	assert.NotNil(t, e.VideoSelfieVerifiedAt)
}

func TestAttemptTransitionRejectsOutOfOrderSteps(t *testing.T) {
	now := time.Now()

	_, tier, err := AttemptTransition(Evidence{}, StepDigiLocker, now)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeVerificationOrderViolation))
	assert.Equal(t, TierNone, tier)

	_, tier, err = AttemptTransition(Evidence{PhoneVerifiedAt: &now}, StepVideoSelfie, now)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeVerificationOrderViolation))
	assert.Equal(t, TierBronze, tier)
}

func TestAttemptTransitionRejectsUnknownStep(t *testing.T) {
	_, _, err := AttemptTransition(Evidence{}, Step("retina_scan"), time.Now())
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidInput))
}

// Re-running a completed step keeps the original timestamp, so the tier
// never regresses and evidence is never rewritten.
func TestAttemptTransitionIsIdempotent(t *testing.T) {
	first := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	e, tier, err := AttemptTransition(Evidence{}, StepPhone, first)
	require.NoError(t, err)
	require.Equal(t, TierBronze, tier)

	e, tier, err = AttemptTransition(e, StepPhone, second)
	require.NoError(t, err)
	assert.Equal(t, TierBronze, tier)
	assert.Equal(t, first, *e.PhoneVerifiedAt)
}

// Earned tiers survive any sequence of further transitions.
func TestTierIsMonotone(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	e := Evidence{}
	previous := TierNone
	steps := []Step{StepPhone, StepPhone, StepDigiLocker, StepVideoSelfie, StepDigiLocker, StepPhone}

	for _, step := range steps {
		var tier Tier
		var err error
		e, tier, err = AttemptTransition(e, step, now)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, int(tier), int(previous), "tier regressed on step %s", step)
		previous = tier
		now = now.Add(time.Minute)
	}

	assert.Equal(t, TierGold, previous)
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "unverified", TierNone.String())
	assert.Equal(t, "bronze", TierBronze.String())
	assert.Equal(t, "silver", TierSilver.String())
	assert.Equal(t, "gold", TierGold.String())
}
