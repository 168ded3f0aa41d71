package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"math/big"

	"github.com/google/uuid"
	"github.com/tendant/token-security/internal/domain"
)

// TokensRepository handles one-time token persistence. Both operations run
// inside a transaction with a row lock so concurrent requests for the same
// scope are serialized by the database rather than by in-process locks.
type TokensRepository struct {
	db *sql.DB
}

// NewTokensRepository creates a new tokens repository.
func NewTokensRepository(db *sql.DB) *TokensRepository {
	return &TokensRepository{db: db}
}

// FindActiveOrCreate returns the active token for the (subject, type, path)
// scope, or inserts a fresh one when none exists. A scope-level advisory lock
// plus the row lock guarantee at most one insert wins for a given scope; all
// concurrent callers observe the same uuid. When a token is created, onCreate
// is invoked with the plaintext code inside the same transaction; an onCreate
// error rolls the insert back.
func (r *TokensRepository) FindActiveOrCreate(
	ctx context.Context,
	p domain.IssueParams,
	onCreate func(code string) error,
) (domain.TokenSummary, bool, error) {
	var summary domain.TokenSummary
	var isNew bool

	err := Tx(ctx, r.db, func(tx *sql.Tx) error {
		// FOR UPDATE locks nothing when the scope has no active row yet, so
		// two concurrent issuances could both pass the select and insert. The
		// transaction-scoped advisory lock serializes them; the loser's select
		// then sees the winner's committed row.
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`,
			scopeLockKey(p.SubjectID, p.Type)); err != nil {
			return fmt.Errorf("failed to take issuance lock: %w", err)
		}

		query := `
			SELECT uuid, type
			FROM tokens
			WHERE authenticatable_id = $1 AND type = $2
			  AND used IS NULL AND deleted_at IS NULL AND expires_at > $3
			  AND ($4 OR path = $5)
			FOR UPDATE
		`
		err := tx.QueryRowContext(ctx, query,
			p.SubjectID, p.Type, p.Now, p.IgnorePath, p.Path,
		).Scan(&summary.UUID, &summary.Type)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to query active token: %w", err)
		}

		code, err := randomCode()
		if err != nil {
			return fmt.Errorf("failed to generate code: %w", err)
		}
		id := uuid.New()

		insert := `
			INSERT INTO tokens (uuid, token, authenticatable_id, path, type, expires_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		`
		if _, err := tx.ExecContext(ctx, insert,
			id, code, p.SubjectID, p.Path, p.Type, p.Now.Add(p.TTL), p.Now,
		); err != nil {
			return fmt.Errorf("failed to insert token: %w", err)
		}

		// Dispatch inside the transaction: a delivery failure must leave no
		// orphan token behind.
		if onCreate != nil {
			if err := onCreate(code); err != nil {
				return err
			}
		}

		summary = domain.TokenSummary{UUID: id, Type: p.Type}
		isNew = true
		return nil
	})
	if err != nil {
		return domain.TokenSummary{}, false, err
	}
	return summary, isNew, nil
}

// Consume locates the unused token matching the presented code and scope,
// marks it used and soft-deleted, and reports the outcome. Expired tokens are
// reported as such and left unconsumed for audit. The row lock guarantees a
// code is accepted at most once under concurrent attempts.
func (r *TokensRepository) Consume(ctx context.Context, p domain.ConsumeParams) (domain.ConsumeStatus, error) {
	status := domain.ConsumeNotFound

	err := Tx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			SELECT id, expires_at
			FROM tokens
			WHERE authenticatable_id = $1 AND token = $2
			  AND used IS NULL AND deleted_at IS NULL
			  AND ($3 OR path = $4)
			FOR UPDATE
		`
		var id int64
		var expiresAt sql.NullTime
		err := tx.QueryRowContext(ctx, query,
			p.SubjectID, p.Code, p.IgnorePath, p.Path,
		).Scan(&id, &expiresAt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to query token: %w", err)
		}

		if expiresAt.Valid && !p.Now.Before(expiresAt.Time) {
			status = domain.ConsumeExpired
			return nil
		}

		update := `
			UPDATE tokens
			SET used = $2, deleted_at = $2, updated_at = $2
			WHERE id = $1
		`
		if _, err := tx.ExecContext(ctx, update, id, p.Now); err != nil {
			return fmt.Errorf("failed to consume token: %w", err)
		}
		status = domain.ConsumeValid
		return nil
	})
	if err != nil {
		return domain.ConsumeNotFound, err
	}
	return status, nil
}

// scopeLockKey derives the advisory lock key serializing issuance for one
// subject and type. The path is deliberately left out: path-scoped and
// ignore-path issuances for the same subject must serialize against each
// other too.
func scopeLockKey(subjectID uuid.UUID, typ domain.TokenType) int64 {
	h := fnv.New64a()
	h.Write(subjectID[:])
	h.Write([]byte(typ))
	return int64(h.Sum64())
}

// randomCode generates a 6-digit numeric code using crypto/rand.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
