package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/griebenowschalk/manga-tracker/internal/domain"
	"github.com/griebenowschalk/manga-tracker/pkg/database"
	apperrors "github.com/griebenowschalk/manga-tracker/pkg/errors"
)

// RefreshTokenRepository implements repository.RefreshTokenRepository using
// PostgreSQL. Row ids double as the jti claim of the signed token.
type RefreshTokenRepository struct {
	db database.DBTX
}

// NewRefreshTokenRepository creates a new PostgreSQL-backed refresh token repository.
func NewRefreshTokenRepository(db database.DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Create inserts a new ledger row for a freshly issued token.
func (r *RefreshTokenRepository) Create(ctx context.Context, id, userID string) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, revoked, created_at)
		VALUES ($1, $2, false, $3)`

	_, err := r.db.Exec(ctx, query, id, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}

	return nil
}

// GetByID retrieves a ledger row by its id.
func (r *RefreshTokenRepository) GetByID(ctx context.Context, id string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, revoked, created_at
		FROM refresh_tokens
		WHERE id = $1`

	var rt domain.RefreshToken
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rt.ID,
		&rt.UserID,
		&rt.Revoked,
		&rt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}

	return &rt, nil
}

// Revoke flips the row to revoked. The conditional WHERE clause makes the
// check-and-flip atomic: a zero row count means the token was already revoked
// or never existed.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, id string) (bool, error) {
	query := `UPDATE refresh_tokens SET revoked = true WHERE id = $1 AND revoked = false`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}

	return ct.RowsAffected() > 0, nil
}

// RevokeAllForUser revokes every active token for the given user.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	query := `UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND revoked = false`

	_, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens by user: %w", err)
	}

	return nil
}
