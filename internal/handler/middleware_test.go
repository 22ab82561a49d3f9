package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bandhan-service/internal/apperror"
	"bandhan-service/internal/bucketing"
	"bandhan-service/internal/config"
	"bandhan-service/internal/service"
	"bandhan-service/internal/token"
	"bandhan-service/internal/verification"
)

func middlewareTestConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret: "test-secret-for-middleware",
			TTL:    time.Hour,
			Issuer: "bandhan-service",
		},
		Bucketing: config.BucketingConfig{
			UserBuckets:  100,
			EventBuckets: 50,
		},
	}
}

func newTestMiddleware(t *testing.T) (*Middleware, *token.Manager, *bucketing.Manager) {
	t.Helper()
	cfg := middlewareTestConfig()
	tokenMgr := token.NewManager(cfg)
	bucketingMgr := bucketing.NewManager(cfg)
	audit := service.NewAuditService(nil, nil, nil, bucketingMgr)
	return NewMiddleware(tokenMgr, bucketingMgr, nil, audit), tokenMgr, bucketingMgr
}

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)

	called := false
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, apperror.CodeUnauthorized, resp.Error.Code)
}

func TestAuthenticateRejectsMalformedAndInvalidTokens(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)

	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, header := range []string{"Basic abc123", "Bearer ", "Bearer not.a.token"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.Header.Set("Authorization", header)
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestAuthenticateStoresClaimsAndBucket(t *testing.T) {
	mw, tokenMgr, bucketingMgr := newTestMiddleware(t)

	signed, _, err := tokenMgr.Mint("user-1", "phone-hash-1", int(verification.TierSilver))
	require.NoError(t, err)

	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "phone-hash-1", claims.PhoneHash)
		assert.Equal(t, int(verification.TierSilver), claims.VerificationLevel)
		assert.Equal(t, bucketingMgr.GetUserBucket("user-1"), UserBucketFromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAgeVerifiedBlocksBronzeTier(t *testing.T) {
	mw, tokenMgr, _ := newTestMiddleware(t)

	signed, _, err := tokenMgr.Mint("user-1", "phone-hash-1", int(verification.TierBronze))
	require.NoError(t, err)

	handler := mw.Authenticate(mw.RequireAgeVerified(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("gated handler must not run")
	})))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/quota/profiles/consume", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, apperror.CodeAgeNotVerified, resp.Error.Code)
	assert.Equal(t, "complete_digilocker_verification", resp.Error.RequiresAction)
}

func TestOptionalAgeVerifiedAnnotatesWithoutBlocking(t *testing.T) {
	mw, tokenMgr, _ := newTestMiddleware(t)

	tests := []struct {
		tier verification.Tier
		want AgeGateInfo
	}{
		{verification.TierBronze, AgeGateInfo{RequiresVerification: true}},
		{verification.TierSilver, AgeGateInfo{IsVerified: true, IsAdult: true}},
		{verification.TierGold, AgeGateInfo{IsVerified: true, IsAdult: true}},
	}

	for _, tt := range tests {
		signed, _, err := tokenMgr.Mint("user-1", "phone-hash-1", int(tt.tier))
		require.NoError(t, err)

		handler := mw.Authenticate(mw.OptionalAgeVerified(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, ok := AgeGateFromContext(r.Context())
			require.True(t, ok, "tier %s", tt.tier)
			assert.Equal(t, tt.want, info, "tier %s", tt.tier)
			w.WriteHeader(http.StatusNoContent)
		})))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code, "tier %s", tt.tier)
	}
}

func TestOptionalAgeVerifiedWithoutClaims(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)

	handler := mw.OptionalAgeVerified(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, ok := AgeGateFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, AgeGateInfo{RequiresVerification: true}, info)
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAgeVerifiedPassesSilverAndGold(t *testing.T) {
	mw, tokenMgr, _ := newTestMiddleware(t)

	for _, tier := range []verification.Tier{verification.TierSilver, verification.TierGold} {
		signed, _, err := tokenMgr.Mint("user-1", "phone-hash-1", int(tier))
		require.NoError(t, err)

		handler := mw.Authenticate(mw.RequireAgeVerified(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/quota/profiles/consume", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code, "tier %s", tier)
	}
}
