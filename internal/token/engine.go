// Package token implements the one-time token lifecycle: issuing codes bound
// to a (subject, type, path) scope, verifying them exactly once, and rate
// limiting failed attempts.
package token

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tendant/token-security/internal/domain"
	"github.com/tendant/token-security/internal/notification"
	"github.com/tendant/token-security/internal/ratelimit"
)

const (
	// HeaderOperation and HeaderCode are the request markers whose joint
	// presence switches the engine into verification mode.
	HeaderOperation = "X-OTP-Operation"
	HeaderCode      = "X-OTP-Code"

	invalidTokenMessage = "Invalid or expired token"
)

// Store is the transactional persistence contract for token records.
type Store interface {
	FindActiveOrCreate(ctx context.Context, p domain.IssueParams, onCreate func(code string) error) (domain.TokenSummary, bool, error)
	Consume(ctx context.Context, p domain.ConsumeParams) (domain.ConsumeStatus, error)
}

// TOTPVerifier verifies time-based codes against a shared secret.
type TOTPVerifier interface {
	Verify(secret, code string) bool
}

// Config holds engine tuning parameters.
type Config struct {
	// TokenTTL is the issuance-to-expiry window. Defaults to 10 minutes.
	TokenTTL time.Duration
	// MaxAttempts is the failed-verification budget per window. Defaults to 5.
	MaxAttempts int
	// AttemptDecay is the cool-down window opened by the first failure.
	// Defaults to 60 seconds.
	AttemptDecay time.Duration
}

// Request carries the per-call inputs: the target identity, the scope path,
// the client origin, and the verification markers read off the inbound
// request. It is immutable for the duration of a call, so one engine serves
// concurrent requests without shared state.
type Request struct {
	Target   domain.Target
	Path     string
	ClientIP string

	// Operation and Code are the verification markers. Both present means
	// verification mode; otherwise the call is an issuance.
	Operation string
	Code      string

	// IgnorePath widens the token scope to any path.
	IgnorePath bool

	// Secret overrides the subject's stored TOTP secret.
	Secret string
}

func (r Request) wantsVerification() bool {
	return r.Operation != "" && r.Code != ""
}

// Engine orchestrates the token lifecycle. Construct it once at startup; all
// per-call state travels in the Request value.
type Engine struct {
	store       Store
	limiter     ratelimit.Limiter
	dispatchers notification.Registry
	totp        TOTPVerifier
	logger      *slog.Logger

	ttl          time.Duration
	maxAttempts  int
	attemptDecay time.Duration
	now          func() time.Time
}

// NewEngine creates a token security engine.
func NewEngine(
	cfg Config,
	store Store,
	limiter ratelimit.Limiter,
	dispatchers notification.Registry,
	totpVerifier TOTPVerifier,
	logger *slog.Logger,
) *Engine {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = domain.DefaultTokenTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.AttemptDecay <= 0 {
		cfg.AttemptDecay = 60 * time.Second
	}
	return &Engine{
		store:        store,
		limiter:      limiter,
		dispatchers:  dispatchers,
		totp:         totpVerifier,
		logger:       logger,
		ttl:          cfg.TokenTTL,
		maxAttempts:  cfg.MaxAttempts,
		attemptDecay: cfg.AttemptDecay,
		now:          time.Now,
	}
}

// IssueOrVerify is the main entry point. When the request carries both
// verification markers it attempts verification of the named operation;
// otherwise it issues a token of the given type, defaulting to the target's
// preferred channel.
func (e *Engine) IssueOrVerify(ctx context.Context, req Request, typ domain.TokenType) (Result, error) {
	if req.wantsVerification() {
		valid, err := e.Verify(ctx, req)
		if err != nil {
			return Result{}, err
		}
		if valid {
			return Result{Verified: true, Status: http.StatusOK}, nil
		}
		return Result{
			Status: StatusPreconditionRequired,
			Payload: Payload{
				Type:  strings.ToLower(req.Operation),
				Error: invalidTokenMessage,
			},
		}, nil
	}

	if typ == "" {
		typ = req.Target.PreferredChannel()
	}
	return e.Issue(ctx, req, typ)
}

// IssueEmail issues or verifies an email token.
func (e *Engine) IssueEmail(ctx context.Context, req Request) (Result, error) {
	return e.IssueOrVerify(ctx, req, domain.TokenTypeEmail)
}

// IssueSMS issues or verifies an SMS token.
func (e *Engine) IssueSMS(ctx context.Context, req Request) (Result, error) {
	return e.IssueOrVerify(ctx, req, domain.TokenTypeSMS)
}

// IssueTOTP issues or verifies a TOTP challenge.
func (e *Engine) IssueTOTP(ctx context.Context, req Request) (Result, error) {
	return e.IssueOrVerify(ctx, req, domain.TokenTypeTOTP)
}

// Issue creates (or re-reports) the active token for the target's scope and
// dispatches the code for newly created tokens inside the same transaction,
// so a delivery failure rolls the issuance back. TOTP issuance is a no-op:
// the code lives in the authenticator app, not in the store.
func (e *Engine) Issue(ctx context.Context, req Request, typ domain.TokenType) (Result, error) {
	if typ == domain.TokenTypeTOTP {
		return Result{
			Status:  StatusPreconditionRequired,
			Payload: Payload{UUID: "totp", Type: string(domain.TokenTypeTOTP)},
		}, nil
	}

	targetID, err := req.Target.ResolveID()
	if err != nil {
		return Result{}, err
	}

	address := req.Target.Address(typ)
	summary, isNew, err := e.store.FindActiveOrCreate(ctx, domain.IssueParams{
		SubjectID:  targetID,
		Type:       typ,
		Path:       req.Path,
		IgnorePath: req.IgnorePath,
		Now:        e.now(),
		TTL:        e.ttl,
	}, func(code string) error {
		if err := e.dispatchers.Dispatch(ctx, typ, address, code); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrDispatchFailed, err)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	e.logger.Info("token issued",
		"subject_id", targetID,
		"type", typ,
		"is_new", isNew,
	)

	payload := Payload{UUID: summary.UUID.String(), Type: string(summary.Type)}
	if !isNew {
		f := false
		payload.IsNew = &f
	}
	return Result{Status: StatusPreconditionRequired, Payload: payload}, nil
}

// Verify checks the presented code for the operation named in the request.
// Rate-limited, invalid, and expired outcomes all read as false so callers
// cannot distinguish them. Failed attempts arm the limiter; a success clears
// it.
func (e *Engine) Verify(ctx context.Context, req Request) (bool, error) {
	targetID, err := req.Target.ResolveID()
	if err != nil {
		return false, err
	}

	key := ratelimit.AttemptKey(targetID.String(), req.ClientIP)
	blocked, err := e.limiter.TooManyAttempts(ctx, key, e.maxAttempts)
	if err != nil {
		return false, err
	}
	if blocked {
		return false, nil
	}

	operation := strings.ToLower(req.Operation)

	var valid bool
	if operation == string(domain.TokenTypeTOTP) || operation == "google2fa" {
		secret := req.Secret
		if secret == "" {
			secret = req.Target.Secret()
		}
		valid = e.totp.Verify(secret, req.Code)
	} else {
		status, err := e.store.Consume(ctx, domain.ConsumeParams{
			SubjectID:  targetID,
			Code:       req.Code,
			Path:       req.Path,
			IgnorePath: req.IgnorePath,
			Now:        e.now(),
		})
		if err != nil {
			return false, err
		}
		valid = status == domain.ConsumeValid
	}

	if !valid {
		if err := e.limiter.Hit(ctx, key, e.attemptDecay); err != nil {
			e.logger.Warn("failed to record verification attempt", "error", err)
		}
		return false, nil
	}

	if err := e.limiter.Clear(ctx, key); err != nil {
		e.logger.Warn("failed to clear verification attempts", "error", err)
	}
	return true, nil
}
