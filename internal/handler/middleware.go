package handler

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"bandhan-service/internal/apperror"
	"bandhan-service/internal/bucketing"
	"bandhan-service/internal/models"
	"bandhan-service/internal/service"
	"bandhan-service/internal/token"
	"bandhan-service/internal/util"
	"bandhan-service/internal/verification"
)

type contextKey string

const (
	claimsContextKey     contextKey = "auth_claims"
	userBucketContextKey contextKey = "user_bucket"
	ageGateContextKey    contextKey = "age_gate"
)

// Middleware bundles the auth, age and consent gates that guard the
// protected route groups.
type Middleware struct {
	tokenMgr       *token.Manager
	bucketingMgr   *bucketing.Manager
	consentService *service.ConsentService
	audit          *service.AuditService
}

func NewMiddleware(
	tokenMgr *token.Manager,
	bucketingMgr *bucketing.Manager,
	consentService *service.ConsentService,
	audit *service.AuditService,
) *Middleware {
	return &Middleware{
		tokenMgr:       tokenMgr,
		bucketingMgr:   bucketingMgr,
		consentService: consentService,
		audit:          audit,
	}
}

// Authenticate validates the bearer token and stashes the claims and
// the user's partition bucket on the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondWithError(w, apperror.New(apperror.CodeUnauthorized, "missing authorization header"))
			return
		}

		tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || tokenStr == "" {
			respondWithError(w, apperror.New(apperror.CodeUnauthorized, "authorization header must be a bearer token"))
			return
		}

		claims, err := m.tokenMgr.Verify(tokenStr)
		if err != nil {
			respondWithError(w, apperror.Wrap(apperror.CodeUnauthorized, "invalid or expired token", err))
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		ctx = context.WithValue(ctx, userBucketContextKey, m.bucketingMgr.GetUserBucket(claims.UserID))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAgeVerified blocks users below silver tier: without a passed
// government-ID check there is no verified date of birth. The block is
// audited before the response goes out.
func (m *Middleware) RequireAgeVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			respondWithError(w, apperror.New(apperror.CodeUnauthorized, "authentication required"))
			return
		}

		if claims.VerificationLevel < int(verification.TierSilver) {
			if err := m.audit.Record(r.Context(), models.AuditAgeRestrictionBlock, claims.UserID,
				"route", r.URL.Path, nil, clientIP(r), r.UserAgent()); err != nil {
				util.Error("Failed to audit age gate block",
					zap.String("user_id", claims.UserID),
					zap.Error(err))
			}
			respondWithError(w, apperror.New(apperror.CodeAgeNotVerified, "age verification required").
				WithAction("complete_digilocker_verification"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// AgeGateInfo is the non-blocking age annotation for routes that tailor
// their response to the caller's verification state instead of
// rejecting outright.
type AgeGateInfo struct {
	IsVerified           bool `json:"is_verified"`
	IsAdult              bool `json:"is_adult"`
	RequiresVerification bool `json:"requires_verification"`
}

// OptionalAgeVerified annotates the request with the caller's age-gate
// state and always passes through. Silver tier implies a passed
// government-ID check, and minors never reach silver, so silver and
// above reads as adult.
func (m *Middleware) OptionalAgeVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := AgeGateInfo{RequiresVerification: true}
		if claims, ok := ClaimsFromContext(r.Context()); ok && claims.VerificationLevel >= int(verification.TierSilver) {
			info = AgeGateInfo{IsVerified: true, IsAdult: true}
		}

		ctx := context.WithValue(r.Context(), ageGateContextKey, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AgeGateFromContext returns the annotation set by OptionalAgeVerified.
func AgeGateFromContext(ctx context.Context) (AgeGateInfo, bool) {
	info, ok := ctx.Value(ageGateContextKey).(AgeGateInfo)
	return info, ok
}

// RequireConsent gates a route group on a live consent covering the
// given purpose.
func (m *Middleware) RequireConsent(purpose models.ConsentPurpose) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				respondWithError(w, apperror.New(apperror.CodeUnauthorized, "authentication required"))
				return
			}

			if err := m.consentService.RequireActive(r.Context(), claims.UserID, purpose); err != nil {
				respondWithError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext returns the verified token claims, if any.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*token.Claims)
	return claims, ok
}

// UserBucketFromContext returns the partition bucket set by Authenticate.
func UserBucketFromContext(ctx context.Context) int {
	bucket, _ := ctx.Value(userBucketContextKey).(int)
	return bucket
}
