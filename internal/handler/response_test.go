package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bandhan-service/internal/apperror"
)

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRespondWithErrorUsesTypedEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()

	respondWithError(rec, apperror.New(apperror.CodeDailyLimitReached, "daily limit reached for likes").
		WithDetails(map[string]interface{}{"limit": 20}).
		WithAction("upgrade"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, apperror.CodeDailyLimitReached, resp.Error.Code)
	assert.Equal(t, "daily limit reached for likes", resp.Error.Message)
	assert.Equal(t, "upgrade", resp.Error.RequiresAction)
	assert.EqualValues(t, 20, resp.Error.Details["limit"])
}

func TestRespondWithErrorCollapsesUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()

	respondWithError(rec, errors.New("gocql: no hosts available"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, apperror.CodeInternal, resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "gocql")
}

func TestRespondWithJSONSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()

	respondWithJSON(rec, http.StatusCreated, successResponse(map[string]string{"id": "u-1"}, "created"))

	assert.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "created", resp.Message)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.7:51234"
	assert.Equal(t, "192.0.2.7", clientIP(r).String())

	r.RemoteAddr = "192.0.2.7"
	assert.Equal(t, "192.0.2.7", clientIP(r).String())
}
