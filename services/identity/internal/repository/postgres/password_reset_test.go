package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/siapee/siapee/pkg/errors"
	"github.com/siapee/siapee/services/identity/internal/domain"
)

func TestPasswordResetRepository_Create(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPasswordResetRepository(mock)

	tok := &domain.PasswordResetToken{
		ID:        "pr-1",
		UserID:    testUserID,
		TokenHash: "hash-1",
		ExpiresAt: fixedNow.Add(time.Hour),
		CreatedAt: fixedNow,
	}
	mock.ExpectExec(q(insertPasswordReset)).
		WithArgs(tok.ID, tok.UserID, tok.TokenHash, tok.ExpiresAt, tok.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), tok))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_GetByHash(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPasswordResetRepository(mock)
	used := fixedNow.Add(-time.Minute)

	rows := pgxmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "used_at", "created_at"}).
		AddRow("pr-1", testUserID, "hash-1", fixedNow.Add(time.Hour), &used, fixedNow)
	mock.ExpectQuery(q(selectPasswordResetByHash)).WithArgs("hash-1").WillReturnRows(rows)

	tok, err := repo.GetByHash(context.Background(), "hash-1")
	require.NoError(t, err)
	require.NotNil(t, tok.UsedAt)
	assert.False(t, tok.Usable(fixedNow))
}

func TestPasswordResetRepository_GetByHash_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPasswordResetRepository(mock)

	mock.ExpectQuery(q(selectPasswordResetByHash)).WithArgs("nope").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByHash(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPasswordResetRepository_Redeem_SingleTransaction(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPasswordResetRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec(q(markPasswordResetUsed)).WithArgs(fixedNow, "pr-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(q(updateUserPassword)).WithArgs("new-hash", fixedNow, testUserID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(q(revokeUserRefreshTokens)).WithArgs(fixedNow, testUserID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Redeem(context.Background(), "pr-1", testUserID, "new-hash", fixedNow))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_Redeem_AlreadyUsed(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPasswordResetRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec(q(markPasswordResetUsed)).WithArgs(fixedNow, "pr-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.Redeem(context.Background(), "pr-1", testUserID, "new-hash", fixedNow)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
