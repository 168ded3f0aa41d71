package otp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the OTP challenge routes.
func (h *Handler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/v1/otp/challenge", h.Challenge)
		r.Post("/v1/otp/totp/setup", h.TOTPSetup)
	})
	r.Post("/v1/otp/contact", h.ContactChallenge)
}
