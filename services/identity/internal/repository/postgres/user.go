package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/siapee/siapee/pkg/database"
	apperrors "github.com/siapee/siapee/pkg/errors"
	"github.com/siapee/siapee/services/identity/internal/domain"
)

const userColumns = `id, name, email, password_hash, role, COALESCE(phone, ''), COALESCE(avatar_url, ''), created_at, updated_at`

const (
	insertUser = `
		INSERT INTO users (id, name, email, password_hash, role, phone, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9)`

	selectUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	selectUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	selectUserByName = `SELECT ` + userColumns + ` FROM users WHERE name = $1 ORDER BY created_at ASC LIMIT 1`

	selectUserRole = `SELECT role FROM users WHERE id = $1`

	updateUserProfile = `
		UPDATE users
		SET name = $1, phone = NULLIF($2, ''), avatar_url = NULLIF($3, ''), updated_at = $4
		WHERE id = $5`

	updateUserPassword = `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`

	revokeUserRefreshTokens = `UPDATE refresh_tokens SET valid = FALSE, revoked_at = $1 WHERE user_id = $2 AND valid`
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db  database.DBTX
	now func() time.Time
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	ctx, end := database.TraceQuery(ctx, "users.create", insertUser)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, insertUser,
		u.ID,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.Role,
		u.Phone,
		u.AvatarURL,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID. Malformed IDs are reported as not found.
func (r *UserRepository) GetByID(ctx context.Context, id string) (_ *domain.User, err error) {
	if uuid.Validate(id) != nil {
		return nil, apperrors.ErrNotFound
	}

	ctx, end := database.TraceQuery(ctx, "users.get_by_id", selectUserByID)
	defer func() { end(err) }()

	return scanUser(r.db.QueryRow(ctx, selectUserByID, id))
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (_ *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, "users.get_by_email", selectUserByEmail)
	defer func() { end(err) }()

	return scanUser(r.db.QueryRow(ctx, selectUserByEmail, email))
}

// GetByName retrieves the oldest user with the given name.
func (r *UserRepository) GetByName(ctx context.Context, name string) (_ *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, "users.get_by_name", selectUserByName)
	defer func() { end(err) }()

	return scanUser(r.db.QueryRow(ctx, selectUserByName, name))
}

// GetRole returns the current role of a user.
func (r *UserRepository) GetRole(ctx context.Context, id string) (_ string, err error) {
	if uuid.Validate(id) != nil {
		return "", apperrors.ErrNotFound
	}

	ctx, end := database.TraceQuery(ctx, "users.get_role", selectUserRole)
	defer func() { end(err) }()

	var role string
	if err = r.db.QueryRow(ctx, selectUserRole, id).Scan(&role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrNotFound
		}
		return "", fmt.Errorf("scan user role: %w", err)
	}
	return role, nil
}

// UpdateProfile stores the editable profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, u *domain.User) (err error) {
	ctx, end := database.TraceQuery(ctx, "users.update_profile", updateUserProfile)
	defer func() { end(err) }()

	u.UpdatedAt = r.now().UTC()

	ct, err := r.db.Exec(ctx, updateUserProfile, u.Name, u.Phone, u.AvatarURL, u.UpdatedAt, u.ID)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", u.ID)
	}

	return nil
}

// UpdatePassword replaces the password hash and invalidates all refresh
// tokens of the user in one transaction.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) (err error) {
	ctx, end := database.TraceQuery(ctx, "users.update_password", updateUserPassword)
	defer func() { end(err) }()

	now := r.now().UTC()
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return setPassword(ctx, tx, userID, passwordHash, now)
	})
}

// setPassword updates the hash and revokes refresh tokens inside tx.
func setPassword(ctx context.Context, tx pgx.Tx, userID, passwordHash string, now time.Time) error {
	ct, err := tx.Exec(ctx, updateUserPassword, passwordHash, now, userID)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", userID)
	}

	tokens := &RefreshTokenRepository{db: tx, now: func() time.Time { return now }}
	return tokens.RevokeByUserID(ctx, userID)
}

// scanUser scans a single user row.
func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Phone,
		&u.AvatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}
