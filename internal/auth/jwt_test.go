package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *TokenManager {
	return NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m := newTestManager()

	signed, err := m.IssueAccessToken("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := m.VerifyAccessToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Empty(t, claims.ID)
}

func TestIssueAndVerifyRefreshToken(t *testing.T) {
	m := newTestManager()

	signed, err := m.IssueRefreshToken("user-123", "ledger-abc")
	require.NoError(t, err)

	claims, err := m.VerifyRefreshToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "ledger-abc", claims.ID)
}

func TestVerifyAccessToken_WrongSecret(t *testing.T) {
	m := newTestManager()
	other := NewTokenManager("different-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)

	signed, err := m.IssueAccessToken("user-123")
	require.NoError(t, err)

	_, err = other.VerifyAccessToken(signed)
	assert.Error(t, err)
}

func TestVerifyRefreshToken_RejectsAccessToken(t *testing.T) {
	m := newTestManager()

	signed, err := m.IssueAccessToken("user-123")
	require.NoError(t, err)

	// Signed with the access secret, so refresh verification must fail even
	// before the missing-jti check.
	_, err = m.VerifyRefreshToken(signed)
	assert.Error(t, err)
}

func TestVerifyAccessToken_RejectsRefreshToken(t *testing.T) {
	m := newTestManager()

	signed, err := m.IssueRefreshToken("user-123", "ledger-abc")
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(signed)
	assert.Error(t, err)
}

func TestVerifyAccessToken_Expired(t *testing.T) {
	m := NewTokenManager("access-secret", "refresh-secret", -time.Minute, 7*24*time.Hour)

	signed, err := m.IssueAccessToken("user-123")
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(signed)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerifyRefreshToken_MissingJTI(t *testing.T) {
	m := newTestManager()

	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-123",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte("refresh-secret"))
	require.NoError(t, err)

	_, err = m.VerifyRefreshToken(signed)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "jti")
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	m := newTestManager()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject: "user-123",
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(signed)
	assert.Error(t, err)
}
