package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/griebenowschalk/manga-tracker/internal/domain"
	apperrors "github.com/griebenowschalk/manga-tracker/pkg/errors"
	"github.com/griebenowschalk/manga-tracker/pkg/pagination"
)

func newTestUserService(userRepo *mockUserRepository, refreshRepo *mockRefreshTokenRepository) *UserService {
	return NewUserService(userRepo, refreshRepo, newTestEventProducer(), newTestLogger())
}

func sampleAdmin() *domain.User {
	u := sampleStoredUser()
	u.ID = "admin-1"
	u.Email = "admin@example.com"
	u.Role = domain.RoleAdmin
	return u
}

// --- List ---

func TestAdminList_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestUserService(userRepo, new(mockRefreshTokenRepository))

	params := pagination.Params{Page: 1, PerPage: 20, Offset: 0}
	userRepo.On("List", mock.Anything, params).Return([]domain.User{*sampleStoredUser()}, 42, nil)

	result, err := svc.List(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 42, result.TotalCount)
	assert.Equal(t, 3, result.TotalPages)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "alice@example.com", result.Data[0].Email)
}

// --- Create ---

func TestAdminCreate_WithRole(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestUserService(userRepo, new(mockRefreshTokenRepository))

	userRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	user, err := svc.Create(context.Background(), AdminCreateInput{
		Email:       "bob@example.com",
		Password:    "Sup3r$ecret",
		DisplayName: "Bob",
		Role:        domain.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}

func TestAdminCreate_DefaultsToUserRole(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestUserService(userRepo, new(mockRefreshTokenRepository))

	userRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	user, err := svc.Create(context.Background(), AdminCreateInput{
		Email:       "bob@example.com",
		Password:    "Sup3r$ecret",
		DisplayName: "Bob",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role)
}

func TestAdminCreate_StoresNormalizedEmail(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestUserService(userRepo, new(mockRefreshTokenRepository))

	userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "bob@example.com"
	})).Return(nil)

	user, err := svc.Create(context.Background(), AdminCreateInput{
		Email:       " Bob@Example.COM ",
		Password:    "Sup3r$ecret",
		DisplayName: "Bob",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", user.Email)
	userRepo.AssertExpectations(t)
}

func TestAdminCreate_InvalidRole(t *testing.T) {
	svc := newTestUserService(new(mockUserRepository), new(mockRefreshTokenRepository))

	_, err := svc.Create(context.Background(), AdminCreateInput{
		Email:       "bob@example.com",
		Password:    "Sup3r$ecret",
		DisplayName: "Bob",
		Role:        "SUPERUSER",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

// --- Update ---

func TestAdminUpdate_PromoteUser(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestUserService(userRepo, new(mockRefreshTokenRepository))

	target := sampleStoredUser()
	userRepo.On("GetByID", mock.Anything, target.ID).Return(target, nil)
	userRepo.On("Update", mock.Anything, target).Return(nil)

	user, err := svc.Update(context.Background(), "admin-1", target.ID, AdminUpdateInput{
		Role: strPtr(domain.RoleAdmin),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}

func TestAdminUpdate_NormalizesEmail(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestUserService(userRepo, new(mockRefreshTokenRepository))

	target := sampleStoredUser()
	userRepo.On("GetByID", mock.Anything, target.ID).Return(target, nil)
	userRepo.On("Update", mock.Anything, target).Return(nil)

	user, err := svc.Update(context.Background(), "admin-1", target.ID, AdminUpdateInput{
		Email: strPtr(" Renamed@Example.COM "),
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed@example.com", user.Email)
}

func TestAdminUpdate_SelfDemotionForbidden(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestUserService(userRepo, new(mockRefreshTokenRepository))

	admin := sampleAdmin()
	userRepo.On("GetByID", mock.Anything, admin.ID).Return(admin, nil)

	_, err := svc.Update(context.Background(), admin.ID, admin.ID, AdminUpdateInput{
		Role: strPtr(domain.RoleUser),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	userRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestAdminUpdate_PasswordRevokesSessions(t *testing.T) {
	userRepo := new(mockUserRepository)
	refreshRepo := new(mockRefreshTokenRepository)
	svc := newTestUserService(userRepo, refreshRepo)

	target := sampleStoredUser()
	userRepo.On("GetByID", mock.Anything, target.ID).Return(target, nil)
	userRepo.On("Update", mock.Anything, target).Return(nil)
	refreshRepo.On("RevokeAllForUser", mock.Anything, target.ID).Return(nil)

	_, err := svc.Update(context.Background(), "admin-1", target.ID, AdminUpdateInput{
		Password: strPtr("N3w$ecretPass"),
	})
	require.NoError(t, err)
	refreshRepo.AssertCalled(t, "RevokeAllForUser", mock.Anything, target.ID)
}

func TestAdminUpdate_NotFound(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestUserService(userRepo, new(mockRefreshTokenRepository))

	userRepo.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.ErrNotFound)

	_, err := svc.Update(context.Background(), "admin-1", "missing", AdminUpdateInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

// --- Delete ---

func TestAdminDelete_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	refreshRepo := new(mockRefreshTokenRepository)
	svc := newTestUserService(userRepo, refreshRepo)

	target := sampleStoredUser()
	userRepo.On("GetByID", mock.Anything, target.ID).Return(target, nil)
	refreshRepo.On("RevokeAllForUser", mock.Anything, target.ID).Return(nil)
	userRepo.On("Delete", mock.Anything, target.ID).Return(nil)

	err := svc.Delete(context.Background(), "admin-1", target.ID)
	require.NoError(t, err)
	userRepo.AssertExpectations(t)
}

func TestAdminDelete_SelfDeleteForbidden(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestUserService(userRepo, new(mockRefreshTokenRepository))

	err := svc.Delete(context.Background(), "admin-1", "admin-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	userRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
