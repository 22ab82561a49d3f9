package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a category of failure. Each code maps to exactly one HTTP
// status so handlers never pick statuses ad hoc.
type Code string

const (
	CodeUnauthorized               Code = "UNAUTHORIZED"
	CodeUserNotFound               Code = "USER_NOT_FOUND"
	CodeInvalidInput               Code = "INVALID_INPUT"
	CodeAgeNotVerified             Code = "AGE_NOT_VERIFIED"
	CodeAgeRestrictionViolation    Code = "AGE_RESTRICTION_VIOLATION"
	CodeConsentRequired            Code = "CONSENT_REQUIRED"
	CodeConsentWithdrawn           Code = "CONSENT_WITHDRAWN"
	CodeDailyLimitReached          Code = "DAILY_LIMIT_REACHED"
	CodeOTPVerificationFailed      Code = "OTP_VERIFICATION_FAILED"
	CodeOTPExpired                 Code = "OTP_EXPIRED"
	CodeRateLimitExceeded          Code = "RATE_LIMIT_EXCEEDED"
	CodeVerificationOrderViolation Code = "VERIFICATION_ORDER_VIOLATION"
	CodeDigiLockerFailed           Code = "DIGILOCKER_VERIFICATION_FAILED"
	CodeVideoTooLarge              Code = "VIDEO_TOO_LARGE"
	CodeInvalidVideoFormat         Code = "INVALID_VIDEO_FORMAT"
	CodeEncryptionFailed           Code = "ENCRYPTION_FAILED"
	CodeInternal                   Code = "INTERNAL_SERVER_ERROR"
)

var statusByCode = map[Code]int{
	CodeUnauthorized:               http.StatusUnauthorized,
	CodeUserNotFound:               http.StatusNotFound,
	CodeInvalidInput:               http.StatusBadRequest,
	CodeAgeNotVerified:             http.StatusForbidden,
	CodeAgeRestrictionViolation:    http.StatusForbidden,
	CodeConsentRequired:            http.StatusForbidden,
	CodeConsentWithdrawn:           http.StatusForbidden,
	CodeDailyLimitReached:          http.StatusForbidden,
	CodeOTPVerificationFailed:      http.StatusUnauthorized,
	CodeOTPExpired:                 http.StatusUnauthorized,
	CodeRateLimitExceeded:          http.StatusTooManyRequests,
	CodeVerificationOrderViolation: http.StatusConflict,
	CodeDigiLockerFailed:           http.StatusBadGateway,
	CodeVideoTooLarge:              http.StatusBadRequest,
	CodeInvalidVideoFormat:         http.StatusBadRequest,
	CodeEncryptionFailed:           http.StatusInternalServerError,
	CodeInternal:                   http.StatusInternalServerError,
}

// AppError is the service-wide error type. Every failure that crosses a
// handler boundary is either an *AppError or gets collapsed to CodeInternal
// so internals never leak to clients.
type AppError struct {
	Code           Code                   `json:"error"`
	Message        string                 `json:"message"`
	Details        map[string]interface{} `json:"details,omitempty"`
	RequiresAction string                 `json:"requires_action,omitempty"`
	cause          error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Status returns the HTTP status mapped to the error code.
func (e *AppError) Status() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// New creates an AppError with the given code and message.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError that carries an underlying cause.
func Wrap(code Code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, cause: cause}
}

// WithDetails attaches structured details for the client.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithAction sets the requires_action hint (e.g. "upgrade", "give_consent").
func (e *AppError) WithAction(action string) *AppError {
	e.RequiresAction = action
	return e
}

// From converts any error into an *AppError. Unknown errors become a 500 with
// a generic message.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(CodeInternal, "internal server error", err)
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
