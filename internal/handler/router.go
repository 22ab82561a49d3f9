package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"bandhan-service/internal/config"
	"bandhan-service/internal/models"
	"bandhan-service/internal/util"
)

// requireHTTPS rejects any request that wasn't made over TLS.
func requireHTTPS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUpgradeRequired) // 426
			w.Write([]byte(`{"success":false,"error":{"code":"INVALID_INPUT","message":"https required"}}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth         *AuthHandler
	Verification *VerificationHandler
	Consent      *ConsentHandler
	Quota        *QuotaHandler
	User         *UserHandler
	Middleware   *Middleware
}

// NewRouter creates and configures the chi router with all middleware and routes.
func NewRouter(cfg *config.Config, h *Handlers, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	if cfg.IsProduction() {
		router.Use(requireHTTPS)
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggerMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		util.Info("Health check requested")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"bandhan-service"}`))
	})

	router.Route("/api/v1", func(r chi.Router) {
		// Public login flow.
		h.Auth.RegisterRoutes(r)

		// Routes needing only a valid token (phone-verified bronze tier).
		// The age annotation lets these handlers tailor output without
		// blocking under-verified users.
		r.Group(func(r chi.Router) {
			r.Use(h.Middleware.Authenticate)
			r.Use(h.Middleware.OptionalAgeVerified)
			h.Verification.RegisterRoutes(r)
			h.Consent.RegisterRoutes(r)
			h.User.RegisterRoutes(r)
		})

		// Gated actions require silver tier and a live matching consent.
		r.Group(func(r chi.Router) {
			r.Use(h.Middleware.Authenticate)
			r.Use(h.Middleware.RequireAgeVerified)
			r.Use(h.Middleware.RequireConsent(models.PurposeMatching))
			h.Quota.RegisterRoutes(r)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":{"code":"NOT_FOUND","message":"endpoint not found"}}`))
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte(`{"success":false,"error":{"code":"INVALID_INPUT","message":"method not allowed"}}`))
	})

	return router
}

// LoggerMiddleware logs every HTTP request with status and latency.
func LoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					util.String("method", r.Method),
					util.String("path", r.URL.Path),
					util.String("remote_addr", r.RemoteAddr),
					util.Int("status", ww.Status()),
					util.Duration("duration", time.Since(start)),
					util.String("user_agent", r.UserAgent()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
