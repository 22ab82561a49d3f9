package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		code     Code
		expected int
	}{
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeUserNotFound, http.StatusNotFound},
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeAgeNotVerified, http.StatusForbidden},
		{CodeConsentRequired, http.StatusForbidden},
		{CodeDailyLimitReached, http.StatusForbidden},
		{CodeRateLimitExceeded, http.StatusTooManyRequests},
		{CodeVerificationOrderViolation, http.StatusConflict},
		{CodeDigiLockerFailed, http.StatusBadGateway},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.code, "msg").Status())
		})
	}
}

func TestUnknownCodeDefaultsToInternalServerError(t *testing.T) {
	err := New(Code("SOMETHING_NEW"), "msg")
	assert.Equal(t, http.StatusInternalServerError, err.Status())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeInternal, "failed to reach store", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), "failed to reach store")
}

func TestFromPassesThroughAppErrors(t *testing.T) {
	original := New(CodeDailyLimitReached, "daily limit reached")
	converted := From(fmt.Errorf("handler: %w", original))

	assert.Equal(t, CodeDailyLimitReached, converted.Code)
	assert.Equal(t, "daily limit reached", converted.Message)
}

func TestFromCollapsesUnknownErrors(t *testing.T) {
	converted := From(errors.New("gocql: no hosts available"))

	require.NotNil(t, converted)
	assert.Equal(t, CodeInternal, converted.Code)
	// The raw cause must not leak into the client-facing message.
	assert.Equal(t, "internal server error", converted.Message)
}

func TestIs(t *testing.T) {
	err := New(CodeConsentRequired, "consent required")

	assert.True(t, Is(err, CodeConsentRequired))
	assert.True(t, Is(fmt.Errorf("wrapped: %w", err), CodeConsentRequired))
	assert.False(t, Is(err, CodeConsentWithdrawn))
	assert.False(t, Is(errors.New("plain"), CodeConsentRequired))
}

func TestWithDetailsAndAction(t *testing.T) {
	err := New(CodeDailyLimitReached, "daily limit reached").
		WithDetails(map[string]interface{}{"limit": 10}).
		WithAction("upgrade")

	assert.Equal(t, 10, err.Details["limit"])
	assert.Equal(t, "upgrade", err.RequiresAction)
}
