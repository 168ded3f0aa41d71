package repository

import (
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/token-security/internal/domain"
)

func TestTokensRepository_Structure(t *testing.T) {
	// Test that TokensRepository can be instantiated
	repo := NewTokensRepository(nil)

	if repo == nil {
		t.Fatal("NewTokensRepository should not return nil")
	}
	if repo.db != nil {
		t.Error("Expected db to be nil in test")
	}
}

func TestSubjectsRepository_Structure(t *testing.T) {
	repo := NewSubjectsRepository(nil)

	if repo == nil {
		t.Fatal("NewSubjectsRepository should not return nil")
	}
	if repo.db != nil {
		t.Error("Expected db to be nil in test")
	}
}

func TestRandomCode(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 200; i++ {
		code, err := randomCode()
		if err != nil {
			t.Fatalf("randomCode failed: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q has length %d, want 6", code, len(code))
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code %q is not numeric: %v", code, err)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code %d outside [100000, 999999]", n)
		}
		seen[code] = true
	}

	// Not a strict guarantee, but 200 draws collapsing to a handful of
	// values would indicate a broken generator.
	if len(seen) < 100 {
		t.Errorf("only %d distinct codes in 200 draws", len(seen))
	}
}

func TestScopeLockKey(t *testing.T) {
	subjectID := uuid.New()

	if scopeLockKey(subjectID, domain.TokenTypeEmail) != scopeLockKey(subjectID, domain.TokenTypeEmail) {
		t.Error("lock key must be deterministic for one scope")
	}
	if scopeLockKey(subjectID, domain.TokenTypeEmail) == scopeLockKey(subjectID, domain.TokenTypeSMS) {
		t.Error("different types must map to different lock keys")
	}
	if scopeLockKey(subjectID, domain.TokenTypeEmail) == scopeLockKey(uuid.New(), domain.TokenTypeEmail) {
		t.Error("different subjects must map to different lock keys")
	}
}

func TestIssueParams_ScopeFields(t *testing.T) {
	now := time.Now()
	p := domain.IssueParams{
		SubjectID:  uuid.New(),
		Type:       domain.TokenTypeEmail,
		Path:       "/login",
		IgnorePath: false,
		Now:        now,
		TTL:        domain.DefaultTokenTTL,
	}

	if p.SubjectID == uuid.Nil {
		t.Error("SubjectID should be set")
	}
	if p.Now.Add(p.TTL).Sub(now) != 10*time.Minute {
		t.Errorf("expiry window = %v, want 10m", p.Now.Add(p.TTL).Sub(now))
	}
}
