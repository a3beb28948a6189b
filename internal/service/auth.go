package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/griebenowschalk/manga-tracker/internal/auth"
	"github.com/griebenowschalk/manga-tracker/internal/domain"
	"github.com/griebenowschalk/manga-tracker/internal/event"
	"github.com/griebenowschalk/manga-tracker/internal/mailer"
	"github.com/griebenowschalk/manga-tracker/internal/repository"
	apperrors "github.com/griebenowschalk/manga-tracker/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// resetTokenTTL is how long a password reset token stays valid.
const resetTokenTTL = time.Hour

// resetTokenBytes is the entropy of the opaque reset token.
const resetTokenBytes = 32

// AuthService implements the business logic for registration, sessions, and
// credential management.
type AuthService struct {
	userRepo     repository.UserRepository
	refreshRepo  repository.RefreshTokenRepository
	resetRepo    repository.ResetTokenRepository
	tokens       *auth.TokenManager
	producer     *event.Producer
	mailer       mailer.Mailer
	resetBaseURL string
	logger       *slog.Logger
}

// NewAuthService creates a new auth service. resetBaseURL is the frontend
// page that reset emails link to; the raw token is appended as a path
// segment.
func NewAuthService(
	userRepo repository.UserRepository,
	refreshRepo repository.RefreshTokenRepository,
	resetRepo repository.ResetTokenRepository,
	tokens *auth.TokenManager,
	producer *event.Producer,
	m mailer.Mailer,
	resetBaseURL string,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		refreshRepo:  refreshRepo,
		resetRepo:    resetRepo,
		tokens:       tokens,
		producer:     producer,
		mailer:       m,
		resetBaseURL: resetBaseURL,
		logger:       logger,
	}
}

// --- Input types ---

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// UpdateDetailsInput holds the parameters for updating the authenticated
// user's profile. Nil fields are left unchanged; Preferences is merged
// key-by-key into the existing map.
type UpdateDetailsInput struct {
	Email       *string
	DisplayName *string
	Preferences map[string]any
}

// --- Session operations ---

// Register creates a new user account, hashes the password, and opens a
// session.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, *domain.TokenPair, error) {
	input.Email = normalizeEmail(input.Email)
	if input.Email == "" {
		return nil, nil, apperrors.ValidationFailed("email is required")
	}
	if input.DisplayName == "" {
		return nil, nil, apperrors.ValidationFailed("display name is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		DisplayName:  input.DisplayName,
		Role:         domain.RoleUser,
		Preferences:  map[string]any{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	tokens, err := s.IssueSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("issue session: %w", err)
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, tokens, nil
}

// Login authenticates a user with email and password and opens a session.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.TokenPair, error) {
	input.Email = normalizeEmail(input.Email)
	if input.Email == "" || input.Password == "" {
		return nil, nil, apperrors.ValidationFailed("email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid credentials")
	}

	tokens, err := s.IssueSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("issue session: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
	)

	return user, tokens, nil
}

// IssueSession creates a fresh access/refresh pair for the user and records
// the refresh token's jti in the ledger. Ledger insert happens before
// signing so a signed token never exists without its row.
func (s *AuthService) IssueSession(ctx context.Context, userID string) (*domain.TokenPair, error) {
	jti := uuid.New().String()
	if err := s.refreshRepo.Create(ctx, jti, userID); err != nil {
		return nil, fmt.Errorf("record refresh token: %w", err)
	}

	accessToken, err := s.tokens.IssueAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, err := s.tokens.IssueRefreshToken(userID, jti)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh rotates a session: it verifies the presented refresh token, spends
// its ledger row, and issues a fresh pair. A token whose row is already
// spent is treated as stolen; every session for that user is revoked before
// the request is rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.User, *domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, nil, apperrors.Unauthorized("refresh token is required")
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	spent, err := s.refreshRepo.Revoke(ctx, claims.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	if !spent {
		// Valid signature on a spent or unknown jti means the token leaked
		// and was replayed. Kill every session this user has.
		s.logger.WarnContext(ctx, "refresh token reuse detected",
			slog.String("user_id", claims.Subject),
			slog.String("jti", claims.ID),
		)
		if err := s.refreshRepo.RevokeAllForUser(ctx, claims.Subject); err != nil {
			s.logger.ErrorContext(ctx, "failed to revoke sessions after reuse",
				slog.String("user_id", claims.Subject),
				slog.String("error", err.Error()),
			)
		}
		return nil, nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	user, err := s.userRepo.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	tokens, err := s.IssueSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("issue session: %w", err)
	}

	s.logger.InfoContext(ctx, "session refreshed",
		slog.String("user_id", user.ID),
	)

	return user, tokens, nil
}

// Logout revokes the presented refresh token's ledger row. It succeeds even
// when the token is missing or malformed so clients can always clear their
// cookies.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil
	}

	if _, err := s.refreshRepo.Revoke(ctx, claims.ID); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", claims.Subject),
	)

	return nil
}

// --- Profile operations ---

// GetProfile retrieves a user by their ID.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return user, nil
}

// UpdateDetails updates the authenticated user's profile fields. Preference
// keys are merged into the stored map rather than replacing it.
func (s *AuthService) UpdateDetails(ctx context.Context, userID string, input UpdateDetailsInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email == "" {
			return nil, apperrors.ValidationFailed("email must not be empty")
		}
		user.Email = email
	}

	if input.DisplayName != nil {
		if *input.DisplayName == "" {
			return nil, apperrors.ValidationFailed("display name must not be empty")
		}
		user.DisplayName = *input.DisplayName
	}

	if len(input.Preferences) > 0 {
		if user.Preferences == nil {
			user.Preferences = map[string]any{}
		}
		for k, v := range input.Preferences {
			user.Preferences[k] = v
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if err := s.producer.PublishUserUpdated(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.updated event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user details updated",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// UpdatePassword allows an authenticated user to change their password after
// proving knowledge of the current one. All sessions are revoked and a fresh
// one is opened for the caller.
func (s *AuthService) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) (*domain.TokenPair, error) {
	if currentPassword == "" {
		return nil, apperrors.ValidationFailed("current password is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for password change: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return nil, apperrors.Unauthorized("current password is incorrect")
	}

	if err := s.setPassword(ctx, user, newPassword); err != nil {
		return nil, err
	}

	tokens, err := s.IssueSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("user_id", user.ID),
	)

	return tokens, nil
}

// --- Password reset operations ---

// ForgotPassword issues a single-use reset token and emails it to the user.
// The raw token exists only in the email; the database sees its hash.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperrors.ValidationFailed("email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return apperrors.NotFound("user", email)
	}

	rawToken, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expiresAt := time.Now().UTC().Add(resetTokenTTL)
	if err := s.resetRepo.Create(ctx, uuid.New().String(), user.ID, hashToken(rawToken), expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/%s", s.resetBaseURL, rawToken)
	msg := mailer.Message{
		To:      user.Email,
		Subject: "Password reset request",
		HTML: fmt.Sprintf(
			"<p>You requested a password reset. This link is valid for one hour:</p><p><a href=%q>%s</a></p>",
			resetURL, resetURL,
		),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to send reset email",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return apperrors.EmailDeliveryFailed(err)
	}

	if err := s.producer.PublishPasswordResetRequested(ctx, user.ID, user.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_reset_requested event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset requested",
		slog.String("user_id", user.ID),
	)

	return nil
}

// ResetPassword consumes a reset token and sets a new password. The consume
// is atomic, so concurrent submissions of the same token can only succeed
// once. All existing sessions are revoked and a fresh one is opened.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) (*domain.User, *domain.TokenPair, error) {
	if rawToken == "" {
		return nil, nil, apperrors.InvalidResetToken()
	}
	if err := validatePassword(newPassword); err != nil {
		return nil, nil, err
	}

	userID, err := s.resetRepo.ValidateAndConsume(ctx, hashToken(rawToken))
	if err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("get user for password reset: %w", err)
	}

	if err := s.setPassword(ctx, user, newPassword); err != nil {
		return nil, nil, err
	}

	tokens, err := s.IssueSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("issue session: %w", err)
	}

	s.logger.InfoContext(ctx, "password reset completed",
		slog.String("user_id", user.ID),
	)

	return user, tokens, nil
}

// setPassword hashes and stores a new password, revokes every session, and
// publishes the password_changed event.
func (s *AuthService) setPassword(ctx context.Context, user *domain.User, newPassword string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	user.PasswordHash = string(hashedPassword)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	if err := s.refreshRepo.RevokeAllForUser(ctx, user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke sessions after password change",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishPasswordChanged(ctx, user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_changed event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// --- Helpers ---

// normalizeEmail canonicalizes an address for storage and lookup. Emails are
// unique case-insensitively, so every path that touches the email column goes
// through here first.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateResetToken returns a cryptographically random hex token.
func generateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// hashToken returns the SHA256 hex digest of the given token string.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// validatePassword checks that the password meets minimum complexity requirements.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.ValidationFailed(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return apperrors.ValidationFailed("password must contain an uppercase letter, a lowercase letter, a digit, and a special character")
	}

	return nil
}
