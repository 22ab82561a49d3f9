package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bandhan-service/internal/apperror"
	"bandhan-service/internal/bucketing"
	"bandhan-service/internal/service"
	"bandhan-service/internal/token"
	"bandhan-service/internal/util"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := middlewareTestConfig()
	cfg.Environment = "development"

	bucketingMgr := bucketing.NewManager(cfg)
	audit := service.NewAuditService(nil, nil, nil, bucketingMgr)

	handlers := &Handlers{
		Auth:         NewAuthHandler(nil),
		Verification: NewVerificationHandler(nil),
		Consent:      NewConsentHandler(nil),
		Quota:        NewQuotaHandler(nil),
		User:         NewUserHandler(nil, nil),
		Middleware:   NewMiddleware(token.NewManager(cfg), bucketingMgr, nil, audit),
	}

	return NewRouter(cfg, handlers, util.Get())
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestRouterNotFoundReturnsJSONEnvelope(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/no-such-route", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestRouterProtectedRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	protected := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/users/me"},
		{http.MethodGet, "/api/v1/consent"},
		{http.MethodGet, "/api/v1/quota"},
		{http.MethodPost, "/api/v1/quota/profiles/consume"},
		{http.MethodPost, "/api/v1/auth/video-selfie/verify"},
		{http.MethodGet, "/api/v1/verify/status"},
	}

	for _, tt := range protected {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tt.method, tt.path)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error, "%s %s", tt.method, tt.path)
		assert.Equal(t, apperror.CodeUnauthorized, resp.Error.Code)
	}
}

func TestRouterLoginRouteIsPublic(t *testing.T) {
	router := newTestRouter(t)

	// Empty body fails validation inside the handler, not authentication.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/otp/request", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, apperror.CodeInvalidInput, resp.Error.Code)
}
