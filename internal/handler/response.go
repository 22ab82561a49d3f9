package handler

import (
	"encoding/json"
	"net"
	"net/http"

	"bandhan-service/internal/apperror"
	"bandhan-service/internal/util"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorBody carries the typed error surface: a stable machine code, a
// human message, structured details and the client action hint.
type ErrorBody struct {
	Code           apperror.Code          `json:"code"`
	Message        string                 `json:"message"`
	Details        map[string]interface{} `json:"details,omitempty"`
	RequiresAction string                 `json:"requires_action,omitempty"`
}

// Meta represents pagination metadata
type Meta struct {
	PageToken string `json:"page_token,omitempty"`
	Total     int    `json:"total,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
}

// successResponse creates a successful response
func successResponse(data interface{}, message string) Response {
	return Response{
		Success: true,
		Data:    data,
		Message: message,
	}
}

func respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		util.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

// respondWithError maps any error onto the typed error envelope.
// Unknown errors collapse to a 500 without leaking internals.
func respondWithError(w http.ResponseWriter, err error) {
	appErr := apperror.From(err)

	util.Warn("HTTP error response",
		util.String("code", string(appErr.Code)),
		util.Int("status_code", appErr.Status()),
		util.ErrorField(err),
	)

	respondWithJSON(w, appErr.Status(), Response{
		Success: false,
		Error: &ErrorBody{
			Code:           appErr.Code,
			Message:        appErr.Message,
			Details:        appErr.Details,
			RequiresAction: appErr.RequiresAction,
		},
	})
}

// clientIP extracts the caller address. RealIP middleware has already
// unwrapped any proxy headers.
func clientIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}
