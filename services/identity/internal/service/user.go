package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/siapee/siapee/pkg/errors"
	"github.com/siapee/siapee/services/identity/internal/domain"
	"github.com/siapee/siapee/services/identity/internal/repository"
)

// UserService implements profile operations and role lookups.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// UpdateProfileInput holds the editable profile fields. Nil fields are left
// unchanged; an empty phone or avatar URL clears it.
type UpdateProfileInput struct {
	Name      *string
	Phone     *string
	AvatarURL *string
}

// RoleOf returns the current role of a user, read from the database on every
// call. A missing user yields an error wrapping ErrNotFound.
func (s *UserService) RoleOf(ctx context.Context, userID string) (string, error) {
	role, err := s.users.GetRole(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

// GetProfile returns the user's own profile.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateProfile edits name, phone and avatar URL. Email and role are not
// editable here.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.InvalidInput("name must not be empty")
		}
		user.Name = name
	}
	if input.Phone != nil {
		user.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*input.AvatarURL)
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.logger.InfoContext(ctx, "profile updated",
		slog.String("user_id", userID),
	)
	return user, nil
}
