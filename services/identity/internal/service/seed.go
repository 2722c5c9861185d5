package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/siapee/siapee/pkg/errors"
	"github.com/siapee/siapee/services/identity/internal/domain"
	"github.com/siapee/siapee/services/identity/internal/repository"
)

// AdminSeed describes the initial administrator account.
type AdminSeed struct {
	Name     string
	Email    string
	Password string
}

// EnsureAdmin creates the initial ADMIN account unless a user already owns
// the email. It reports whether an account was created.
func EnsureAdmin(ctx context.Context, users repository.UserRepository, seed AdminSeed, bcryptCost int, logger *slog.Logger) (bool, error) {
	email := domain.NormalizeEmail(seed.Email)
	if !domain.LooksLikeEmail(email) {
		return false, apperrors.InvalidInput("admin email must be a valid email address")
	}
	if err := validatePassword(seed.Password); err != nil {
		return false, err
	}

	if _, err := users.GetByEmail(ctx, email); err == nil {
		logger.InfoContext(ctx, "admin account already present", slog.String("email", email))
		return false, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return false, fmt.Errorf("look up admin: %w", err)
	}

	passwordHash, err := hashPassword(seed.Password, bcryptCost)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	admin := &domain.User{
		ID:           uuid.New().String(),
		Name:         seed.Name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, admin); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}

	logger.InfoContext(ctx, "admin account created",
		slog.String("user_id", admin.ID),
		slog.String("email", email),
	)
	return true, nil
}
