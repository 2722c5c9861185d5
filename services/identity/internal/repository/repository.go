package repository

import (
	"context"
	"time"

	"github.com/siapee/siapee/services/identity/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user. A duplicate email yields ErrAlreadyExists.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByName retrieves the oldest user with the given name.
	GetByName(ctx context.Context, name string) (*domain.User, error)

	// GetRole returns only the role of the given user.
	GetRole(ctx context.Context, id string) (string, error)

	// UpdateProfile stores name, phone and avatar URL.
	UpdateProfile(ctx context.Context, user *domain.User) error

	// UpdatePassword replaces the password hash and invalidates every
	// refresh token of the user in one transaction.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// RefreshTokenRepository defines the interface for refresh token persistence operations.
type RefreshTokenRepository interface {
	// Create stores a new refresh token hash.
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// GetByHash retrieves a refresh token record by its hash.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// Revoke marks a specific refresh token invalid. Unknown or already
	// invalid tokens are not an error.
	Revoke(ctx context.Context, tokenHash string) error
}

// PasswordResetRepository defines the interface for password reset tokens.
type PasswordResetRepository interface {
	// Create stores a new reset token hash.
	Create(ctx context.Context, token *domain.PasswordResetToken) error

	// GetByHash retrieves a reset token by its hash.
	GetByHash(ctx context.Context, tokenHash string) (*domain.PasswordResetToken, error)

	// Redeem marks the token used, sets the new password hash and
	// invalidates the user's refresh tokens in one transaction. A token that
	// was redeemed concurrently yields ErrConflict.
	Redeem(ctx context.Context, tokenID, userID, passwordHash string, at time.Time) error
}

// SignupRepository defines the interface for signup request persistence.
type SignupRepository interface {
	// Create inserts a new request. A duplicate email yields ErrAlreadyExists.
	Create(ctx context.Context, req *domain.SignupRequest) error

	// GetByID retrieves a request by its identifier.
	GetByID(ctx context.Context, id string) (*domain.SignupRequest, error)

	// ExistsByEmail reports whether any request exists for the email.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// List returns one page of requests newest first, optionally filtered by
	// status, along with the total number of matching requests.
	List(ctx context.Context, status string, limit, offset int) ([]domain.SignupRequest, int, error)

	// Decide stores the decision only if the request is still PENDING and,
	// when user is non-nil, inserts it unless the email is taken, all in one
	// transaction. A request that is no longer PENDING yields ErrConflict.
	// created reports whether the user row was inserted.
	Decide(ctx context.Context, req *domain.SignupRequest, user *domain.User) (created bool, err error)
}
