package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/token-security/internal/config"
	"github.com/tendant/token-security/internal/http/features/otp"
	"github.com/tendant/token-security/internal/http/middleware"
	"github.com/tendant/token-security/internal/httputil"
	"github.com/tendant/token-security/internal/repository"
	"github.com/tendant/token-security/internal/token"
	"github.com/tendant/token-security/internal/totp"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger       *slog.Logger
	Engine       *token.Engine
	SubjectsRepo *repository.SubjectsRepository
	TOTPVerifier *totp.Verifier
	TOTPIssuer   string
	JWTSecret    []byte
	JWTIssuer    string
	App          config.Config
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RequestSizeLimit(cfg.App.MaxBodyBytes))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	rateLimiter := middleware.NoRateLimit()
	if cfg.App.RateLimitEnabled {
		rateLimiter = middleware.RateLimit(middleware.RateLimitConfig{
			Requests: cfg.App.RateLimitRequestsPerWindow,
			Window:   cfg.App.RateLimitWindow,
			Logger:   cfg.Logger,
		})
	}

	authMiddleware := middleware.Auth(cfg.JWTSecret, cfg.JWTIssuer)

	otpHandler := otp.NewHandler(cfg.Logger, cfg.Engine, cfg.SubjectsRepo, cfg.TOTPVerifier, cfg.TOTPIssuer)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiter)
		otpHandler.RegisterRoutes(r, authMiddleware)
	})

	return r
}
