package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/siapee/siapee/pkg/database"
	apperrors "github.com/siapee/siapee/pkg/errors"
	"github.com/siapee/siapee/services/identity/internal/domain"
)

const (
	insertPasswordReset = `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	selectPasswordResetByHash = `
		SELECT id, user_id, token_hash, expires_at, used_at, created_at
		FROM password_reset_tokens
		WHERE token_hash = $1`

	markPasswordResetUsed = `
		UPDATE password_reset_tokens
		SET used_at = $1
		WHERE id = $2 AND used_at IS NULL AND expires_at > $1`
)

// PasswordResetRepository implements repository.PasswordResetRepository using PostgreSQL.
type PasswordResetRepository struct {
	db database.DBTX
}

// NewPasswordResetRepository creates a new PostgreSQL-backed reset token repository.
func NewPasswordResetRepository(db database.DBTX) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

// Create stores a new reset token hash.
func (r *PasswordResetRepository) Create(ctx context.Context, t *domain.PasswordResetToken) (err error) {
	ctx, end := database.TraceQuery(ctx, "password_reset_tokens.create", insertPasswordReset)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, insertPasswordReset, t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert password reset token: %w", err)
	}

	return nil
}

// GetByHash retrieves a reset token by its hash.
func (r *PasswordResetRepository) GetByHash(ctx context.Context, tokenHash string) (_ *domain.PasswordResetToken, err error) {
	ctx, end := database.TraceQuery(ctx, "password_reset_tokens.get_by_hash", selectPasswordResetByHash)
	defer func() { end(err) }()

	var t domain.PasswordResetToken
	err = r.db.QueryRow(ctx, selectPasswordResetByHash, tokenHash).Scan(
		&t.ID,
		&t.UserID,
		&t.TokenHash,
		&t.ExpiresAt,
		&t.UsedAt,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan password reset token: %w", err)
	}

	return &t, nil
}

// Redeem consumes the token and applies the new password in one transaction.
func (r *PasswordResetRepository) Redeem(ctx context.Context, tokenID, userID, passwordHash string, at time.Time) (err error) {
	ctx, end := database.TraceQuery(ctx, "password_reset_tokens.redeem", markPasswordResetUsed)
	defer func() { end(err) }()

	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, markPasswordResetUsed, at, tokenID)
		if err != nil {
			return fmt.Errorf("mark password reset token used: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("password reset token %s: %w", tokenID, apperrors.ErrConflict)
		}

		return setPassword(ctx, tx, userID, passwordHash, at)
	})
}
