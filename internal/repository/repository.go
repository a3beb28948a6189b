package repository

import (
	"context"
	"time"

	"github.com/griebenowschalk/manga-tracker/internal/domain"
	"github.com/griebenowschalk/manga-tracker/pkg/pagination"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update modifies an existing user in the store.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user from the store by their identifier.
	Delete(ctx context.Context, id string) error

	// List returns a page of users ordered by creation time descending,
	// along with the total count.
	List(ctx context.Context, params pagination.Params) ([]domain.User, int, error)
}

// RefreshTokenRepository defines the interface for the refresh token ledger.
// Each row corresponds to exactly one signed refresh token; the row id is the
// token's jti claim. Expiry is not stored because it is enforced by the JWT
// itself.
type RefreshTokenRepository interface {
	// Create inserts a new ledger row for a freshly issued token.
	Create(ctx context.Context, id, userID string) error

	// GetByID retrieves a ledger row by its id (the token's jti).
	GetByID(ctx context.Context, id string) (*domain.RefreshToken, error)

	// Revoke marks the row revoked. It reports whether the row transitioned
	// from active to revoked; false means the token was already revoked or
	// never existed, which callers treat as a reuse signal.
	Revoke(ctx context.Context, id string) (bool, error)

	// RevokeAllForUser revokes every active token for the given user.
	RevokeAllForUser(ctx context.Context, userID string) error
}

// ResetTokenRepository defines the interface for password reset tokens. Only
// a SHA-256 hash of the opaque token is stored.
type ResetTokenRepository interface {
	// Create inserts a new reset token record.
	Create(ctx context.Context, id, userID, tokenHash string, expiresAt time.Time) error

	// ValidateAndConsume atomically marks the unused, unexpired token with
	// the given hash as used and returns the owning user id. It fails if the
	// token is unknown, already used, or expired.
	ValidateAndConsume(ctx context.Context, tokenHash string) (string, error)
}
