package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bandhan-service/internal/apperror"
	"bandhan-service/internal/service"
	"bandhan-service/internal/token"
)

func authedRequest(method, path string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	ctx := context.WithValue(req.Context(), claimsContextKey, &token.Claims{
		UserID:            "user-1",
		PhoneHash:         "hash-1",
		VerificationLevel: 1,
	})
	ctx = context.WithValue(ctx, userBucketContextKey, 7)
	return req.WithContext(ctx)
}

func newVideoHandler() *VerificationHandler {
	// The rejected-upload paths never reach the repositories, so an
	// empty service is enough here.
	return NewVerificationHandler(service.NewVerificationService(nil, nil, nil, nil, nil))
}

func TestVideoSelfieRejectsOversizedUpload(t *testing.T) {
	h := newVideoHandler()

	payload, err := json.Marshal(map[string]string{
		"video_data": base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0xAB}, service.MaxVideoSelfieBytes+1)),
		"mime_type":  "video/mp4",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.VideoSelfie(rec, authedRequest(http.MethodPost, "/auth/video-selfie/verify", payload))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, apperror.CodeVideoTooLarge, resp.Error.Code)
}

func TestVideoSelfieRejectsUnknownFormat(t *testing.T) {
	h := newVideoHandler()

	payload, err := json.Marshal(map[string]string{
		"video_data": base64.StdEncoding.EncodeToString([]byte("not really a video")),
		"mime_type":  "video/x-msvideo",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.VideoSelfie(rec, authedRequest(http.MethodPost, "/auth/video-selfie/verify", payload))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, apperror.CodeInvalidVideoFormat, resp.Error.Code)
}

func TestVideoSelfieRejectsBadBase64(t *testing.T) {
	h := newVideoHandler()

	payload, err := json.Marshal(map[string]string{
		"video_data": "%%% definitely not base64 %%%",
		"mime_type":  "video/mp4",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.VideoSelfie(rec, authedRequest(http.MethodPost, "/auth/video-selfie/verify", payload))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, apperror.CodeInvalidInput, resp.Error.Code)
}

func TestVideoSelfieRequiresFields(t *testing.T) {
	h := newVideoHandler()

	rec := httptest.NewRecorder()
	h.VideoSelfie(rec, authedRequest(http.MethodPost, "/auth/video-selfie/verify", []byte(`{}`)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, apperror.CodeInvalidInput, resp.Error.Code)
}

func TestVideoSelfieInstructions(t *testing.T) {
	h := newVideoHandler()

	rec := httptest.NewRecorder()
	h.VideoSelfieInstructions(rec, authedRequest(http.MethodGet, "/auth/video-selfie/instructions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "video/mp4"))
	assert.True(t, strings.Contains(rec.Body.String(), "allowed_formats"))
}
