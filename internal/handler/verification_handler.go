package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bandhan-service/internal/apperror"
	"bandhan-service/internal/service"
)

// VerificationHandler exposes the silver and gold verification steps.
type VerificationHandler struct {
	verificationService *service.VerificationService
}

func NewVerificationHandler(verificationService *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verificationService: verificationService}
}

func (h *VerificationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/verify/digilocker/callback", h.DigiLockerCallback)
	r.Get("/verify/status", h.Status)
	r.Post("/auth/video-selfie/verify", h.VideoSelfie)
	r.Get("/auth/video-selfie/status", h.VideoSelfieStatus)
	r.Get("/auth/video-selfie/instructions", h.VideoSelfieInstructions)
}

type digiLockerCallbackRequest struct {
	Code string `json:"code" validate:"required"`
}

// DigiLockerCallback exchanges the OAuth code, pulls the eKYC profile and
// upgrades the caller to silver tier if the age gate passes.
func (h *VerificationHandler) DigiLockerCallback(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, apperror.New(apperror.CodeUnauthorized, "authentication required"))
		return
	}

	var req digiLockerCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, apperror.Wrap(apperror.CodeInvalidInput, "invalid request body", err))
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, apperror.Wrap(apperror.CodeInvalidInput, "authorization code is required", err))
		return
	}

	result, err := h.verificationService.CompleteDigiLocker(r.Context(),
		UserBucketFromContext(r.Context()), claims.UserID, req.Code, clientIP(r), r.UserAgent())
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(result, "government ID verified"))
}

// Status reports the caller's position on the trust ladder.
func (h *VerificationHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, apperror.New(apperror.CodeUnauthorized, "authentication required"))
		return
	}

	status, err := h.verificationService.Status(r.Context(),
		UserBucketFromContext(r.Context()), claims.UserID)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(status, ""))
}

type videoSelfieRequest struct {
	VideoData string                 `json:"video_data" validate:"required"`
	MimeType  string                 `json:"mime_type" validate:"required"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// VideoSelfie accepts the liveness video as a base64 JSON body and
// upgrades the caller to gold tier. The payload is validated by decoded
// size and container format; the actual liveness scoring happens in the
// async pipeline, so the bytes are discarded here.
func (h *VerificationHandler) VideoSelfie(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, apperror.New(apperror.CodeUnauthorized, "authentication required"))
		return
	}

	var req videoSelfieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, apperror.Wrap(apperror.CodeInvalidInput, "invalid request body", err))
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, apperror.Wrap(apperror.CodeInvalidInput, "video_data and mime_type are required", err))
		return
	}

	// Reject oversized payloads on the encoded length before decoding.
	if int64(base64.StdEncoding.DecodedLen(len(req.VideoData))) > service.MaxVideoSelfieBytes {
		respondWithError(w, apperror.New(apperror.CodeVideoTooLarge, "video exceeds the 10MB limit"))
		return
	}

	decoded, err := base64.StdEncoding.DecodeString(req.VideoData)
	if err != nil {
		respondWithError(w, apperror.Wrap(apperror.CodeInvalidInput, "video_data must be base64 encoded", err))
		return
	}

	result, err := h.verificationService.SubmitVideoSelfie(r.Context(),
		UserBucketFromContext(r.Context()), claims.UserID,
		req.MimeType, int64(len(decoded)), clientIP(r), r.UserAgent())
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(result, "video selfie accepted"))
}

// VideoSelfieStatus reports whether the liveness step is done.
func (h *VerificationHandler) VideoSelfieStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, apperror.New(apperror.CodeUnauthorized, "authentication required"))
		return
	}

	status, err := h.verificationService.Status(r.Context(),
		UserBucketFromContext(r.Context()), claims.UserID)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"submitted":   status.VideoSelfieVerifiedAt != nil,
		"verified_at": status.VideoSelfieVerifiedAt,
		"tier":        status.Tier,
	}, ""))
}

// VideoSelfieInstructions returns the recording requirements shown
// before the liveness capture starts.
func (h *VerificationHandler) VideoSelfieInstructions(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"max_bytes":       service.MaxVideoSelfieBytes,
		"allowed_formats": []string{"video/mp4", "video/webm", "video/quicktime"},
		"steps": []string{
			"Hold your phone at eye level in a well lit room",
			"Keep your full face inside the frame",
			"Slowly turn your head left, then right",
			"Say the four digit code shown on screen",
		},
	}, ""))
}
