package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bandhan-service/internal/apperror"
	"bandhan-service/internal/service"
)

const defaultAuditPageSize = 50

// UserHandler exposes the caller's own profile and audit trail.
type UserHandler struct {
	userService  *service.UserService
	auditService *service.AuditService
}

func NewUserHandler(userService *service.UserService, auditService *service.AuditService) *UserHandler {
	return &UserHandler{userService: userService, auditService: auditService}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users/me", h.Me)
	r.Get("/users/me/audit-events", h.AuditEvents)
}

// Me returns the caller's profile with tier, quotas and active consent.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, apperror.New(apperror.CodeUnauthorized, "authentication required"))
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), UserBucketFromContext(r.Context()), claims.UserID)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(profile, ""))
}

// AuditEvents returns the caller's recent audit events. An event_type
// query switches to the search index; otherwise the analytics store is
// read over the from/to date range.
func (h *UserHandler) AuditEvents(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, apperror.New(apperror.CodeUnauthorized, "authentication required"))
		return
	}

	limit := defaultAuditPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			respondWithError(w, apperror.New(apperror.CodeInvalidInput, "limit must be between 1 and 500"))
			return
		}
		limit = parsed
	}

	var events interface{}
	var err error
	if eventType := r.URL.Query().Get("event_type"); eventType != "" {
		events, err = h.auditService.Search(r.Context(), claims.UserID, eventType, limit)
	} else {
		events, err = h.auditService.EventsForUser(r.Context(), claims.UserID,
			r.URL.Query().Get("from"), r.URL.Query().Get("to"), limit)
	}
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(events, ""))
}
