package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/griebenowschalk/manga-tracker/internal/domain"
	"github.com/griebenowschalk/manga-tracker/internal/event"
	"github.com/griebenowschalk/manga-tracker/internal/repository"
	apperrors "github.com/griebenowschalk/manga-tracker/pkg/errors"
	"github.com/griebenowschalk/manga-tracker/pkg/pagination"
)

// UserService implements administrative user management. Every operation
// takes the acting admin's id so self-targeting rules can be enforced.
type UserService struct {
	userRepo    repository.UserRepository
	refreshRepo repository.RefreshTokenRepository
	producer    *event.Producer
	logger      *slog.Logger
}

// NewUserService creates a new admin user service.
func NewUserService(
	userRepo repository.UserRepository,
	refreshRepo repository.RefreshTokenRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		refreshRepo: refreshRepo,
		producer:    producer,
		logger:      logger,
	}
}

// AdminCreateInput holds the parameters for an admin creating a user.
type AdminCreateInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        string
}

// AdminUpdateInput holds the parameters for an admin updating a user. Nil
// fields are left unchanged.
type AdminUpdateInput struct {
	Email       *string
	DisplayName *string
	Password    *string
	Role        *string
	Preferences map[string]any
}

// List returns a page of users.
func (s *UserService) List(ctx context.Context, params pagination.Params) (pagination.Result[domain.UserView], error) {
	users, total, err := s.userRepo.List(ctx, params)
	if err != nil {
		return pagination.Result[domain.UserView]{}, fmt.Errorf("list users: %w", err)
	}

	views := make([]domain.UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].View())
	}

	return pagination.NewResult(views, total, params), nil
}

// Get retrieves a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Create provisions a user with an explicit role.
func (s *UserService) Create(ctx context.Context, input AdminCreateInput) (*domain.User, error) {
	input.Email = normalizeEmail(input.Email)
	if input.Email == "" {
		return nil, apperrors.ValidationFailed("email is required")
	}
	if input.DisplayName == "" {
		return nil, apperrors.ValidationFailed("display name is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	if input.Role == "" {
		input.Role = domain.RoleUser
	}
	if !domain.IsValidRole(input.Role) {
		return nil, apperrors.ValidationFailed(fmt.Sprintf("invalid role %q", input.Role))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		DisplayName:  input.DisplayName,
		Role:         input.Role,
		Preferences:  map[string]any{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user created by admin",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role),
	)

	return user, nil
}

// Update modifies a user. An admin cannot remove their own admin role; that
// would let the last admin lock everyone out.
func (s *UserService) Update(ctx context.Context, actorID, targetID string, input AdminUpdateInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	if input.Role != nil {
		if !domain.IsValidRole(*input.Role) {
			return nil, apperrors.ValidationFailed(fmt.Sprintf("invalid role %q", *input.Role))
		}
		if actorID == targetID && user.Role == domain.RoleAdmin && *input.Role != domain.RoleAdmin {
			return nil, apperrors.Forbidden("cannot remove your own admin role")
		}
		user.Role = *input.Role
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

	if input.Password != nil {
		if err := validatePassword(*input.Password); err != nil {
			return nil, err
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hashedPassword)
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

	// A password set by an admin invalidates the target's sessions.
	if input.Password != nil {
		if err := s.refreshRepo.RevokeAllForUser(ctx, user.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to revoke sessions after admin password change",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.producer.PublishUserUpdated(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.updated event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user updated by admin",
		slog.String("actor_id", actorID),
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// Delete removes a user. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return apperrors.Forbidden("cannot delete yourself")
	}

	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("get user for delete: %w", err)
	}

	if err := s.refreshRepo.RevokeAllForUser(ctx, targetID); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke sessions before delete",
			slog.String("user_id", targetID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.userRepo.Delete(ctx, targetID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if err := s.producer.PublishUserDeleted(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.deleted event",
			slog.String("user_id", targetID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user deleted by admin",
		slog.String("actor_id", actorID),
		slog.String("user_id", targetID),
	)

	return nil
}
