package domain

import (
	"time"
)

// User is the full account record, including the password hash. It never
// leaves the auth boundary; handlers expose UserView instead.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"`
	DisplayName  string         `json:"display_name"`
	Role         string         `json:"role"`
	Preferences  map[string]any `json:"preferences"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// UserView is the public projection of a User. The field list is declared
// here, next to the entity, rather than derived at runtime; password_hash is
// the only column it omits.
type UserView struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	DisplayName string         `json:"display_name"`
	Role        string         `json:"role"`
	Preferences map[string]any `json:"preferences"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// View returns the public projection of the user.
func (u *User) View() UserView {
	return UserView{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		Preferences: u.Preferences,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// RefreshToken is a ledger row tracking the revocation state of one issued
// refresh token. ID equals the jti embedded in the signed token, so row and
// token are always 1:1. Expiry is carried by the token itself, not the row.
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// ResetToken is a single-use password-reset secret. Only the SHA-256 hash of
// the opaque token string is persisted.
type ResetToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenPair holds a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
