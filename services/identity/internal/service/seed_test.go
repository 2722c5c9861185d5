package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/siapee/siapee/pkg/errors"
	"github.com/siapee/siapee/services/identity/internal/domain"
)

func TestEnsureAdmin_Creates(t *testing.T) {
	users := new(mockUserRepository)
	ctx := context.Background()

	users.On("GetByEmail", ctx, "root@school.org").Return(nil, apperrors.ErrNotFound)
	users.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Role == domain.RoleAdmin &&
			u.Email == "root@school.org" &&
			u.Name == "Administrador" &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("admin-password")) == nil
	})).Return(nil).Once()

	created, err := EnsureAdmin(ctx, users, AdminSeed{Name: "Administrador", Email: "Root@School.org", Password: "admin-password"}, bcrypt.MinCost, testLogger())
	require.NoError(t, err)
	assert.True(t, created)
	users.AssertExpectations(t)
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	users := new(mockUserRepository)
	ctx := context.Background()

	users.On("GetByEmail", ctx, "root@school.org").Return(&domain.User{ID: "user-1"}, nil)

	created, err := EnsureAdmin(ctx, users, AdminSeed{Name: "Administrador", Email: "root@school.org", Password: "admin-password"}, bcrypt.MinCost, testLogger())
	require.NoError(t, err)
	assert.False(t, created)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestEnsureAdmin_LostRace(t *testing.T) {
	users := new(mockUserRepository)
	ctx := context.Background()

	users.On("GetByEmail", ctx, "root@school.org").Return(nil, apperrors.ErrNotFound)
	users.On("Create", ctx, mock.Anything).Return(apperrors.AlreadyExists("user", "email", "root@school.org"))

	created, err := EnsureAdmin(ctx, users, AdminSeed{Name: "Administrador", Email: "root@school.org", Password: "admin-password"}, bcrypt.MinCost, testLogger())
	require.NoError(t, err)
	assert.False(t, created)
}

func TestEnsureAdmin_Errors(t *testing.T) {
	users := new(mockUserRepository)
	ctx := context.Background()

	_, err := EnsureAdmin(ctx, users, AdminSeed{Email: "root", Password: "admin-password"}, bcrypt.MinCost, testLogger())
	requireAppCode(t, err, apperrors.CodeInvalidPayload)

	users.On("GetByEmail", ctx, "root@school.org").Return(nil, errors.New("connection refused"))
	_, err = EnsureAdmin(ctx, users, AdminSeed{Email: "root@school.org", Password: "admin-password"}, bcrypt.MinCost, testLogger())
	assert.ErrorContains(t, err, "connection refused")
}
