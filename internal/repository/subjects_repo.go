package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/token-security/internal/domain"
)

// SubjectsRepository handles subject persistence. Subjects carry the
// collaborator-owned data the engine reads: delivery addresses, the preferred
// channel, and the TOTP secret.
type SubjectsRepository struct {
	db *sql.DB
}

// NewSubjectsRepository creates a new subjects repository.
func NewSubjectsRepository(db *sql.DB) *SubjectsRepository {
	return &SubjectsRepository{db: db}
}

// GetByID retrieves a subject by ID.
func (r *SubjectsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subject, error) {
	query := `
		SELECT id, email, phone, preferred_channel, totp_secret
		FROM subjects
		WHERE id = $1
	`
	subject := &domain.Subject{}
	var phone, secret sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&subject.ID, &subject.Email, &phone, &subject.PreferredChannel, &secret,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSubjectNotFound
	}
	if err != nil {
		return nil, err
	}
	subject.Phone = phone.String
	subject.TOTPSecret = secret.String
	return subject, nil
}

// UpdateTOTPSecret stores a freshly generated TOTP secret for a subject.
func (r *SubjectsRepository) UpdateTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error {
	query := `
		UPDATE subjects
		SET totp_secret = $2, updated_at = $3
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, secret, time.Now())
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrSubjectNotFound
	}
	return nil
}
