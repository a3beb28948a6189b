package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the payload of an access token: the user id and nothing
// else. Access tokens carry no ledger reference, so they stay valid until
// natural expiry even after logout.
type AccessClaims struct {
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token: the user id plus the jti
// that keys the refresh-token ledger row.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// TokenManager signs and verifies the two token classes. Each class has its
// own secret, so an access token can never pass refresh verification or vice
// versa, and its own TTL.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenManager creates a token manager with separate secrets and expiry
// durations for access and refresh tokens.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (m *TokenManager) AccessTTL() time.Duration { return m.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (m *TokenManager) RefreshTTL() time.Duration { return m.refreshTTL }

// IssueAccessToken signs an HS256 access token for the user, expiring at
// now + accessTTL.
func (m *TokenManager) IssueAccessToken(userID string) (string, error) {
	now := time.Now().UTC()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signed, nil
}

// IssueRefreshToken signs an HS256 refresh token for the user. ledgerID is
// embedded as the jti claim and must match the ledger row created for this
// issuance.
func (m *TokenManager) IssueRefreshToken(userID, ledgerID string) (string, error) {
	now := time.Now().UTC()
	claims := &RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ledgerID,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTTL)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}

	return signed, nil
}

// VerifyAccessToken parses and validates an access token. It fails on a bad
// signature, expiry, or a missing subject; callers must map every failure to
// the same unauthorized response.
func (m *TokenManager) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.verify(tokenString, claims, m.accessSecret); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("access token missing subject")
	}
	return claims, nil
}

// VerifyRefreshToken parses and validates a refresh token, additionally
// requiring the jti claim that links it to its ledger row.
func (m *TokenManager) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.verify(tokenString, claims, m.refreshSecret); err != nil {
		return nil, fmt.Errorf("parse refresh token: %w", err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("refresh token missing subject or jti")
	}
	return claims, nil
}

const issuer = "manga-tracker"

func (m *TokenManager) verify(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}
