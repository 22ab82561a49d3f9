package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bandhan-service/internal/apperror"
	"bandhan-service/internal/quota"
	"bandhan-service/internal/service"
)

const defaultUpsellHistoryLimit = 20

// QuotaHandler exposes the daily action limits and the upsell flow that
// fires when a limit is reached.
type QuotaHandler struct {
	quotaService *service.QuotaService
}

func NewQuotaHandler(quotaService *service.QuotaService) *QuotaHandler {
	return &QuotaHandler{quotaService: quotaService}
}

func (h *QuotaHandler) RegisterRoutes(r chi.Router) {
	r.Get("/quota", h.StatusAll)
	r.Get("/quota/upsell/recent", h.RecentUpsellChoices)
	r.Get("/quota/{action}", h.Status)
	r.Post("/quota/{action}/consume", h.Consume)
	r.Post("/quota/{action}/upsell", h.RecordUpsellChoice)
}

func actionParam(r *http.Request) (quota.ActionType, error) {
	action := quota.ActionType(chi.URLParam(r, "action"))
	if !quota.ValidAction(action) {
		return "", apperror.New(apperror.CodeInvalidInput, "unknown quota action").
			WithDetails(map[string]interface{}{"action": string(action)})
	}
	return action, nil
}

// StatusAll returns the counter state for every tracked action.
func (h *QuotaHandler) StatusAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, apperror.New(apperror.CodeUnauthorized, "authentication required"))
		return
	}

	statuses, err := h.quotaService.StatusAll(r.Context(), claims.UserID)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(statuses, ""))
}

// Status returns the counter state for one action.
func (h *QuotaHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, apperror.New(apperror.CodeUnauthorized, "authentication required"))
		return
	}

	action, err := actionParam(r)
	if err != nil {
		respondWithError(w, err)
		return
	}

	status, err := h.quotaService.Status(r.Context(), claims.UserID, action)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(status, ""))
}

// Consume spends one unit of the action's daily allowance. A reached
// limit comes back as a typed error carrying the reset countdown.
func (h *QuotaHandler) Consume(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, apperror.New(apperror.CodeUnauthorized, "authentication required"))
		return
	}

	action, err := actionParam(r)
	if err != nil {
		respondWithError(w, err)
		return
	}

	status, err := h.quotaService.Consume(r.Context(), claims.UserID, action, clientIP(r), r.UserAgent())
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(status, ""))
}

type upsellChoiceRequest struct {
	Choice string `json:"choice" validate:"required"`
}

// RecordUpsellChoice stores what the user chose on the limit-reached screen.
func (h *QuotaHandler) RecordUpsellChoice(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, apperror.New(apperror.CodeUnauthorized, "authentication required"))
		return
	}

	action, err := actionParam(r)
	if err != nil {
		respondWithError(w, err)
		return
	}

	var req upsellChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, apperror.Wrap(apperror.CodeInvalidInput, "invalid request body", err))
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, apperror.Wrap(apperror.CodeInvalidInput, "choice is required", err))
		return
	}

	if err := h.quotaService.RecordUpsellChoice(r.Context(), claims.UserID, action, req.Choice); err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "choice recorded"))
}

// RecentUpsellChoices returns the caller's latest upsell decisions.
func (h *QuotaHandler) RecentUpsellChoices(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, apperror.New(apperror.CodeUnauthorized, "authentication required"))
		return
	}

	limit := defaultUpsellHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			respondWithError(w, apperror.New(apperror.CodeInvalidInput, "limit must be between 1 and 100"))
			return
		}
		limit = parsed
	}

	events, err := h.quotaService.RecentUpsellChoices(r.Context(), claims.UserID, limit)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(events, ""))
}
