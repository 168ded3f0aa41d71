package domain

import (
	"time"

	"github.com/google/uuid"
)

// TokenType identifies the delivery channel a one-time code is bound to.
type TokenType string

const (
	TokenTypeEmail TokenType = "email"
	TokenTypeSMS   TokenType = "sms"
	TokenTypeTOTP  TokenType = "totp"
)

// DefaultTokenTTL is how long an issued code stays valid.
const DefaultTokenTTL = 10 * time.Minute

// Token is a persisted one-time code bound to a subject and, optionally,
// to the request path it protects. TOTP tokens are never persisted.
type Token struct {
	ID        int64
	UUID      uuid.UUID
	Code      string
	SubjectID uuid.UUID
	Path      *string
	Type      TokenType
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// IsActive reports whether the token can still be consumed at the given time.
func (t *Token) IsActive(now time.Time) bool {
	return t.UsedAt == nil && t.DeletedAt == nil && now.Before(t.ExpiresAt)
}

// TokenSummary is the externally visible slice of a token. The secret code is
// deliberately absent: callers only ever see the opaque uuid.
type TokenSummary struct {
	UUID uuid.UUID
	Type TokenType
}

// IssueParams identifies the scope a token is issued for.
type IssueParams struct {
	SubjectID uuid.UUID
	Type      TokenType
	Path      string
	// IgnorePath widens the scope match to any path.
	IgnorePath bool
	Now        time.Time
	TTL        time.Duration
}

// ConsumeParams identifies the token a presented code should consume.
type ConsumeParams struct {
	SubjectID  uuid.UUID
	Code       string
	Path       string
	IgnorePath bool
	Now        time.Time
}

// ConsumeStatus is the outcome of a consume attempt.
type ConsumeStatus int

const (
	// ConsumeNotFound means no matching unused token exists.
	ConsumeNotFound ConsumeStatus = iota
	// ConsumeExpired means a matching token exists but its window has passed.
	// The record is left unconsumed for audit.
	ConsumeExpired
	// ConsumeValid means the token was consumed by this call.
	ConsumeValid
)

// String returns the string representation of the consume status.
func (s ConsumeStatus) String() string {
	switch s {
	case ConsumeValid:
		return "valid"
	case ConsumeExpired:
		return "expired"
	default:
		return "not_found"
	}
}
