package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"bandhan-service/internal/apperror"
	"bandhan-service/internal/service"
)

var validate = validator.New()

// AuthHandler exposes the phone-OTP login flow.
type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/otp/request", h.RequestOTP)
	r.Post("/auth/otp/verify", h.VerifyOTP)
	r.Post("/auth/otp/resend-state", h.ResendState)
}

// RequestOTP sends a one-time code to the given phone number.
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req service.OTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, apperror.Wrap(apperror.CodeInvalidInput, "invalid request body", err))
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, apperror.Wrap(apperror.CodeInvalidInput, "phone number is required", err))
		return
	}

	challenge, err := h.authService.RequestOTP(r.Context(), req.PhoneNumber, clientIP(r))
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(challenge, "OTP sent"))
}

// VerifyOTP checks the submitted code and returns an access token.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req service.OTPVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, apperror.Wrap(apperror.CodeInvalidInput, "invalid request body", err))
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, apperror.Wrap(apperror.CodeInvalidInput, "phone number and a 6-digit code are required", err))
		return
	}

	result, err := h.authService.VerifyOTP(r.Context(), req.PhoneNumber, req.Code, clientIP(r), r.UserAgent())
	if err != nil {
		respondWithError(w, err)
		return
	}

	status := http.StatusOK
	if result.NewUser {
		status = http.StatusCreated
	}
	respondWithJSON(w, status, successResponse(result, "phone verified"))
}

// ResendState reports the remaining resend cooldown for a phone number so
// the client can render the countdown without guessing.
func (h *AuthHandler) ResendState(w http.ResponseWriter, r *http.Request) {
	var req service.OTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, apperror.Wrap(apperror.CodeInvalidInput, "invalid request body", err))
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, apperror.Wrap(apperror.CodeInvalidInput, "phone number is required", err))
		return
	}

	state, err := h.authService.ResendState(r.Context(), req.PhoneNumber)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(state, ""))
}
