package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bandhan-service/internal/apperror"
	"bandhan-service/internal/models"
	"bandhan-service/internal/service"
)

const defaultConsentHistoryLimit = 50

// ConsentHandler exposes the DPDP consent ledger.
type ConsentHandler struct {
	consentService *service.ConsentService
}

func NewConsentHandler(consentService *service.ConsentService) *ConsentHandler {
	return &ConsentHandler{consentService: consentService}
}

func (h *ConsentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/consent", h.Grant)
	r.Post("/consent/withdraw", h.Withdraw)
	r.Post("/consent/verify-purpose", h.VerifyPurpose)
	r.Get("/consent", h.Current)
	r.Get("/consent/history", h.History)
}

// Grant records a fresh consent row for the caller.
func (h *ConsentHandler) Grant(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, apperror.New(apperror.CodeUnauthorized, "authentication required"))
		return
	}

	var req service.ConsentGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, apperror.Wrap(apperror.CodeInvalidInput, "invalid request body", err))
		return
	}

	consent, err := h.consentService.Grant(r.Context(), claims.UserID, &req, clientIP(r), r.UserAgent())
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, successResponse(consent, "consent recorded"))
}

// Withdraw appends a withdrawal row for the caller's active consent.
func (h *ConsentHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, apperror.New(apperror.CodeUnauthorized, "authentication required"))
		return
	}

	consent, err := h.consentService.Withdraw(r.Context(), claims.UserID, clientIP(r), r.UserAgent())
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(consent, "consent withdrawn"))
}

type verifyPurposeRequest struct {
	Purpose string `json:"purpose" validate:"required"`
}

// VerifyPurpose checks whether the caller's live consent covers a
// single processing purpose.
func (h *ConsentHandler) VerifyPurpose(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, apperror.New(apperror.CodeUnauthorized, "authentication required"))
		return
	}

	var req verifyPurposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, apperror.Wrap(apperror.CodeInvalidInput, "invalid request body", err))
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, apperror.Wrap(apperror.CodeInvalidInput, "purpose is required", err))
		return
	}

	purpose := models.ConsentPurpose(req.Purpose)
	if !models.ValidPurpose(purpose) {
		respondWithError(w, apperror.New(apperror.CodeInvalidInput, "unknown consent purpose"))
		return
	}

	if err := h.consentService.RequireActive(r.Context(), claims.UserID, purpose); err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"purpose": purpose,
		"active":  true,
	}, ""))
}

// Current returns the caller's active consent.
func (h *ConsentHandler) Current(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, apperror.New(apperror.CodeUnauthorized, "authentication required"))
		return
	}

	consent, err := h.consentService.Current(r.Context(), claims.UserID)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(consent, ""))
}

// History returns the caller's consent rows, newest first.
func (h *ConsentHandler) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, apperror.New(apperror.CodeUnauthorized, "authentication required"))
		return
	}

	limit := defaultConsentHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			respondWithError(w, apperror.New(apperror.CodeInvalidInput, "limit must be between 1 and 200"))
			return
		}
		limit = parsed
	}

	history, err := h.consentService.History(r.Context(), claims.UserID, limit)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(history, ""))
}
