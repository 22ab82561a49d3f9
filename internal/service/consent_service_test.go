package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bandhan-service/internal/apperror"
	"bandhan-service/internal/models"
)

func TestConsentGateAllowsCoveredPurpose(t *testing.T) {
	consent := &models.Consent{
		PurposeMatching: true,
		ConsentGivenAt:  time.Now(),
	}

	assert.NoError(t, consentGateError(consent, models.PurposeMatching))
}

func TestConsentGateRejectsMissingPurpose(t *testing.T) {
	consent := &models.Consent{
		PurposeMatching: true,
		ConsentGivenAt:  time.Now(),
	}

	err := consentGateError(consent, models.PurposeMarketing)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeConsentRequired))

	appErr := apperror.From(err)
	assert.Equal(t, models.PurposeMarketing, appErr.Details["purpose"])
	assert.Equal(t, "show_consent_screen", appErr.RequiresAction)
}

func TestConsentGateRejectsWithdrawnConsent(t *testing.T) {
	withdrawn := time.Now()
	consent := &models.Consent{
		PurposeMatching:    true,
		PurposeMarketing:   true,
		ConsentGivenAt:     withdrawn.Add(-time.Hour),
		ConsentWithdrawnAt: &withdrawn,
	}

	// A withdrawn consent fails for every purpose, including ones the
	// original grant covered.
	err := consentGateError(consent, models.PurposeMarketing)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeConsentRequired))

	appErr := apperror.From(err)
	assert.Equal(t, models.PurposeMarketing, appErr.Details["purpose"])
	assert.Equal(t, true, appErr.Details["withdrawn"])
	assert.Equal(t, "show_consent_screen", appErr.RequiresAction)
}
