package repository

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/token-security/internal/domain"
)

// These tests run against a real Postgres instance. Set TEST_DATABASE_DSN
// (e.g. "host=localhost port=5432 user=postgres password=postgres
// dbname=token_security_test sslmode=disable") to enable them; they are
// skipped otherwise.
func newIntegrationDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set; skipping Postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE IF NOT EXISTS tokens (
			id BIGSERIAL PRIMARY KEY,
			uuid UUID NOT NULL UNIQUE,
			token VARCHAR(255) NOT NULL UNIQUE,
			authenticatable_id UUID,
			path VARCHAR(255),
			type VARCHAR(32) NOT NULL DEFAULT 'email',
			expires_at TIMESTAMPTZ,
			used TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE tokens`); err != nil {
		t.Fatalf("failed to truncate tokens: %v", err)
	}
	return db
}

// issueToken issues a token for the scope and returns its summary together
// with the plaintext code captured from the dispatch callback.
func issueToken(t *testing.T, repo *TokensRepository, subjectID uuid.UUID, path string, now time.Time) (domain.TokenSummary, string) {
	t.Helper()

	var code string
	summary, isNew, err := repo.FindActiveOrCreate(context.Background(), domain.IssueParams{
		SubjectID: subjectID,
		Type:      domain.TokenTypeEmail,
		Path:      path,
		Now:       now,
		TTL:       domain.DefaultTokenTTL,
	}, func(c string) error {
		code = c
		return nil
	})
	if err != nil {
		t.Fatalf("FindActiveOrCreate failed: %v", err)
	}
	if !isNew {
		t.Fatal("expected a fresh token for an empty scope")
	}
	return summary, code
}

func TestTokensRepository_ConsumeOnce(t *testing.T) {
	db := newIntegrationDB(t)
	repo := NewTokensRepository(db)

	subjectID := uuid.New()
	now := time.Now()
	_, code := issueToken(t, repo, subjectID, "/transfer", now)

	params := domain.ConsumeParams{
		SubjectID: subjectID,
		Code:      code,
		Path:      "/transfer",
		Now:       now.Add(time.Minute),
	}

	status, err := repo.Consume(context.Background(), params)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if status != domain.ConsumeValid {
		t.Fatalf("first consume = %v, want %v", status, domain.ConsumeValid)
	}

	// The code is spent: presenting it again finds nothing.
	status, err = repo.Consume(context.Background(), params)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if status != domain.ConsumeNotFound {
		t.Errorf("second consume = %v, want %v", status, domain.ConsumeNotFound)
	}
}

func TestTokensRepository_ExpiredTokenLeftUnconsumed(t *testing.T) {
	db := newIntegrationDB(t)
	repo := NewTokensRepository(db)

	subjectID := uuid.New()
	issued := time.Now()
	summary, code := issueToken(t, repo, subjectID, "/transfer", issued)

	params := domain.ConsumeParams{
		SubjectID: subjectID,
		Code:      code,
		Path:      "/transfer",
		Now:       issued.Add(domain.DefaultTokenTTL + time.Second),
	}

	status, err := repo.Consume(context.Background(), params)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if status != domain.ConsumeExpired {
		t.Fatalf("consume after expiry = %v, want %v", status, domain.ConsumeExpired)
	}

	// The expired row stays untouched: a repeat attempt still reports
	// expired rather than not-found, and nothing marked it used.
	status, err = repo.Consume(context.Background(), params)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if status != domain.ConsumeExpired {
		t.Errorf("repeat consume after expiry = %v, want %v", status, domain.ConsumeExpired)
	}

	var used, deleted sql.NullTime
	err = db.QueryRow(`SELECT used, deleted_at FROM tokens WHERE uuid = $1`, summary.UUID).Scan(&used, &deleted)
	if err != nil {
		t.Fatalf("failed to read token row: %v", err)
	}
	if used.Valid || deleted.Valid {
		t.Error("expired token must not be marked used or deleted")
	}
}

func TestTokensRepository_PathScope(t *testing.T) {
	db := newIntegrationDB(t)
	repo := NewTokensRepository(db)

	subjectID := uuid.New()
	now := time.Now()

	first, firstCode := issueToken(t, repo, subjectID, "/transfer", now)
	second, _ := issueToken(t, repo, subjectID, "/close-account", now)
	if first.UUID == second.UUID {
		t.Fatal("different paths must get independent tokens")
	}

	// A code scoped to one path is invisible under another.
	status, err := repo.Consume(context.Background(), domain.ConsumeParams{
		SubjectID: subjectID,
		Code:      firstCode,
		Path:      "/close-account",
		Now:       now.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if status != domain.ConsumeNotFound {
		t.Errorf("cross-path consume = %v, want %v", status, domain.ConsumeNotFound)
	}

	// IgnorePath widens the match to any path.
	status, err = repo.Consume(context.Background(), domain.ConsumeParams{
		SubjectID:  subjectID,
		Code:       firstCode,
		IgnorePath: true,
		Now:        now.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if status != domain.ConsumeValid {
		t.Errorf("ignore-path consume = %v, want %v", status, domain.ConsumeValid)
	}
}

func TestTokensRepository_ConcurrentIssuance(t *testing.T) {
	db := newIntegrationDB(t)
	repo := NewTokensRepository(db)

	subjectID := uuid.New()
	now := time.Now()

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		summaries []domain.TokenSummary
		created   int
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summary, isNew, err := repo.FindActiveOrCreate(context.Background(), domain.IssueParams{
				SubjectID: subjectID,
				Type:      domain.TokenTypeEmail,
				Path:      "/transfer",
				Now:       now,
				TTL:       domain.DefaultTokenTTL,
			}, func(string) error { return nil })
			if err != nil {
				t.Errorf("FindActiveOrCreate failed: %v", err)
				return
			}
			mu.Lock()
			summaries = append(summaries, summary)
			if isNew {
				created++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("created = %d, exactly one caller must insert", created)
	}
	for _, s := range summaries {
		if s.UUID != summaries[0].UUID {
			t.Fatalf("callers observed different tokens: %s vs %s", s.UUID, summaries[0].UUID)
		}
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM tokens WHERE authenticatable_id = $1`, subjectID).Scan(&count); err != nil {
		t.Fatalf("failed to count tokens: %v", err)
	}
	if count != 1 {
		t.Errorf("token rows = %d, want 1", count)
	}
}
