package otp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/tendant/token-security/internal/domain"
	"github.com/tendant/token-security/internal/http/middleware"
	"github.com/tendant/token-security/internal/httputil"
	"github.com/tendant/token-security/internal/token"
)

type securityEngine interface {
	IssueOrVerify(ctx context.Context, req token.Request, typ domain.TokenType) (token.Result, error)
}

type subjectStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Subject, error)
	UpdateTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error
}

type totpProvisioner interface {
	GenerateSecret() (string, error)
	ProvisioningURL(appName, accountLabel, secret string) string
}

// Handler exposes the token challenge endpoints. It is the transport
// collaborator: it reads the X-OTP-* markers off the request and decides,
// based on Result.Status, whether to short-circuit.
type Handler struct {
	logger     *slog.Logger
	engine     securityEngine
	subjects   subjectStore
	totp       totpProvisioner
	totpIssuer string
}

// NewHandler creates an OTP handler.
func NewHandler(
	logger *slog.Logger,
	engine securityEngine,
	subjects subjectStore,
	totp totpProvisioner,
	totpIssuer string,
) *Handler {
	return &Handler{
		logger:     logger,
		engine:     engine,
		subjects:   subjects,
		totp:       totp,
		totpIssuer: totpIssuer,
	}
}

type challengeRequest struct {
	Type       string `json:"type"`
	Path       string `json:"path"`
	IgnorePath bool   `json:"ignore_path"`
}

type contactChallengeRequest struct {
	challengeRequest
	Contact    string `json:"contact"`
	Identifier string `json:"identifier"`
}

type verifiedResponse struct {
	Verified bool `json:"verified"`
}

// Challenge issues or verifies a token for the authenticated subject.
// POST /v1/otp/challenge
func (h *Handler) Challenge(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := middleware.GetSubjectID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	subject, err := h.subjects.GetByID(r.Context(), subjectID)
	if err != nil {
		if errors.Is(err, domain.ErrSubjectNotFound) {
			httputil.Error(w, http.StatusUnauthorized, "unknown subject")
			return
		}
		h.logger.Error("failed to load subject", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "challenge failed")
		return
	}

	var body challengeRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	h.run(w, r, token.Request{
		Target:     domain.Target{Subject: subject},
		Path:       pathOrDefault(body.Path, r),
		ClientIP:   r.RemoteAddr,
		Operation:  r.Header.Get(token.HeaderOperation),
		Code:       r.Header.Get(token.HeaderCode),
		IgnorePath: body.IgnorePath,
	}, domain.TokenType(body.Type))
}

// ContactChallenge issues or verifies a token for a manually supplied
// contact, e.g. pre-registration email verification.
// POST /v1/otp/contact
func (h *Handler) ContactChallenge(w http.ResponseWriter, r *http.Request) {
	var body contactChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request")
		return
	}
	if body.Contact == "" {
		httputil.Error(w, http.StatusBadRequest, "contact is required")
		return
	}

	target := domain.Target{Contact: body.Contact}
	if body.Identifier != "" {
		id, err := uuid.Parse(body.Identifier)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid identifier")
			return
		}
		target.ContactID = id
	}

	h.run(w, r, token.Request{
		Target:     target,
		Path:       pathOrDefault(body.Path, r),
		ClientIP:   r.RemoteAddr,
		Operation:  r.Header.Get(token.HeaderOperation),
		Code:       r.Header.Get(token.HeaderCode),
		IgnorePath: body.IgnorePath,
	}, domain.TokenType(body.Type))
}

type totpSetupResponse struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// TOTPSetup generates a fresh TOTP secret for the authenticated subject and
// returns it with the otpauth provisioning URL.
// POST /v1/otp/totp/setup
func (h *Handler) TOTPSetup(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := middleware.GetSubjectID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	subject, err := h.subjects.GetByID(r.Context(), subjectID)
	if err != nil {
		httputil.Error(w, http.StatusUnauthorized, "unknown subject")
		return
	}

	secret, err := h.totp.GenerateSecret()
	if err != nil {
		h.logger.Error("failed to generate totp secret", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "setup failed")
		return
	}

	if err := h.subjects.UpdateTOTPSecret(r.Context(), subjectID, secret); err != nil {
		h.logger.Error("failed to store totp secret", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "setup failed")
		return
	}

	httputil.JSON(w, http.StatusOK, totpSetupResponse{
		Secret: secret,
		URL:    h.totp.ProvisioningURL(h.totpIssuer, subject.Email, secret),
	})
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, req token.Request, typ domain.TokenType) {
	result, err := h.engine.IssueOrVerify(r.Context(), req, typ)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoTarget):
			httputil.Error(w, http.StatusBadRequest, "no target: provide a subject or a contact")
		case errors.Is(err, domain.ErrDispatchFailed):
			h.logger.Error("notification dispatch failed", "error", err)
			httputil.Error(w, http.StatusBadGateway, "failed to deliver code")
		default:
			h.logger.Error("token challenge failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "challenge failed")
		}
		return
	}

	if result.Verified {
		httputil.JSON(w, http.StatusOK, verifiedResponse{Verified: true})
		return
	}
	httputil.JSON(w, result.Status, result.Payload)
}

func pathOrDefault(path string, r *http.Request) string {
	if path != "" {
		return path
	}
	return r.URL.Path
}
