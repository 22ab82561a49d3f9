package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsentIsActive(t *testing.T) {
	consent := &Consent{ConsentGivenAt: time.Now()}
	assert.True(t, consent.IsActive())

	withdrawn := time.Now()
	consent.ConsentWithdrawnAt = &withdrawn
	assert.False(t, consent.IsActive())
}

func TestConsentHasPurpose(t *testing.T) {
	consent := &Consent{
		PurposeMatching:  true,
		PurposeAnalytics: true,
	}

	assert.True(t, consent.HasPurpose(PurposeMatching))
	assert.True(t, consent.HasPurpose(PurposeAnalytics))
	assert.False(t, consent.HasPurpose(PurposeMarketing))
	assert.False(t, consent.HasPurpose(PurposeThirdParty))
	assert.False(t, consent.HasPurpose(ConsentPurpose("location")))
}

func TestConsentJSONCarriesActiveFlag(t *testing.T) {
	consent := &Consent{UserID: "user-1", PurposeMatching: true, ConsentGivenAt: time.Now()}

	payload, err := json.Marshal(consent)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"is_active":true`)

	withdrawn := time.Now()
	consent.ConsentWithdrawnAt = &withdrawn

	payload, err = json.Marshal(consent)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"is_active":false`)
}

func TestValidPurpose(t *testing.T) {
	for _, p := range []ConsentPurpose{PurposeMatching, PurposeMarketing, PurposeAnalytics, PurposeThirdParty} {
		assert.True(t, ValidPurpose(p))
	}
	assert.False(t, ValidPurpose(ConsentPurpose("biometrics")))
	assert.False(t, ValidPurpose(ConsentPurpose("")))
}
