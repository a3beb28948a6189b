package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/griebenowschalk/manga-tracker/pkg/database"
	apperrors "github.com/griebenowschalk/manga-tracker/pkg/errors"
)

// ResetTokenRepository implements repository.ResetTokenRepository using
// PostgreSQL. The opaque token never touches the database; only its SHA-256
// hash is stored.
type ResetTokenRepository struct {
	db database.DBTX
}

// NewResetTokenRepository creates a new PostgreSQL-backed reset token repository.
func NewResetTokenRepository(db database.DBTX) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

// Create inserts a new reset token record.
func (r *ResetTokenRepository) Create(ctx context.Context, id, userID, tokenHash string, expiresAt time.Time) error {
	query := `
		INSERT INTO reset_tokens (id, user_id, token_hash, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, false, $5)`

	_, err := r.db.Exec(ctx, query, id, userID, tokenHash, expiresAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert reset token: %w", err)
	}

	return nil
}

// ValidateAndConsume atomically marks the unused, unexpired token with the
// given hash as used and returns its user id. The single conditional UPDATE
// guarantees a token can only ever be consumed once, even under concurrent
// submissions.
func (r *ResetTokenRepository) ValidateAndConsume(ctx context.Context, tokenHash string) (string, error) {
	query := `
		UPDATE reset_tokens
		SET used = true
		WHERE token_hash = $1 AND used = false AND expires_at > $2
		RETURNING user_id`

	var userID string
	err := r.db.QueryRow(ctx, query, tokenHash, time.Now().UTC()).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.InvalidResetToken()
		}
		return "", fmt.Errorf("consume reset token: %w", err)
	}

	return userID, nil
}
