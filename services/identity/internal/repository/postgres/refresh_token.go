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

const (
	insertRefreshToken = `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, valid, created_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)`

	selectRefreshTokenByHash = `
		SELECT id, user_id, token_hash, expires_at, valid, created_at, revoked_at
		FROM refresh_tokens
		WHERE token_hash = $1`

	revokeRefreshToken = `UPDATE refresh_tokens SET valid = FALSE, revoked_at = $1 WHERE token_hash = $2 AND valid`
)

// RefreshTokenRepository implements repository.RefreshTokenRepository using PostgreSQL.
type RefreshTokenRepository struct {
	db  database.DBTX
	now func() time.Time
}

// NewRefreshTokenRepository creates a new PostgreSQL-backed refresh token repository.
func NewRefreshTokenRepository(db database.DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db, now: time.Now}
}

// Create stores a new refresh token hash in the database.
func (r *RefreshTokenRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (err error) {
	ctx, end := database.TraceQuery(ctx, "refresh_tokens.create", insertRefreshToken)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, insertRefreshToken, uuid.NewString(), userID, tokenHash, expiresAt, r.now().UTC())
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}

	return nil
}

// GetByHash retrieves a refresh token record by its hash.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (_ *domain.RefreshToken, err error) {
	ctx, end := database.TraceQuery(ctx, "refresh_tokens.get_by_hash", selectRefreshTokenByHash)
	defer func() { end(err) }()

	var rt domain.RefreshToken
	err = r.db.QueryRow(ctx, selectRefreshTokenByHash, tokenHash).Scan(
		&rt.ID,
		&rt.UserID,
		&rt.TokenHash,
		&rt.ExpiresAt,
		&rt.Valid,
		&rt.CreatedAt,
		&rt.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}

	return &rt, nil
}

// Revoke marks a specific refresh token invalid.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) (err error) {
	ctx, end := database.TraceQuery(ctx, "refresh_tokens.revoke", revokeRefreshToken)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, revokeRefreshToken, r.now().UTC(), tokenHash); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	return nil
}

// RevokeByUserID marks every refresh token of the user invalid.
func (r *RefreshTokenRepository) RevokeByUserID(ctx context.Context, userID string) (err error) {
	ctx, end := database.TraceQuery(ctx, "refresh_tokens.revoke_by_user", revokeUserRefreshTokens)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, revokeUserRefreshTokens, r.now().UTC(), userID); err != nil {
		return fmt.Errorf("revoke refresh tokens by user: %w", err)
	}

	return nil
}
