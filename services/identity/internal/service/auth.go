package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/siapee/siapee/pkg/errors"
	"github.com/siapee/siapee/services/identity/internal/auth"
	"github.com/siapee/siapee/services/identity/internal/domain"
	"github.com/siapee/siapee/services/identity/internal/event"
	"github.com/siapee/siapee/services/identity/internal/repository"
)

// AuthOptions tunes AuthService.
type AuthOptions struct {
	// BcryptCost is the cost factor for new password hashes.
	BcryptCost int
	// ResetTokenTTL is the lifetime of a password reset token.
	ResetTokenTTL time.Duration
	// ExposeResetToken returns the raw reset token from ForgotPassword.
	// Only allowed in development.
	ExposeResetToken bool
}

// AuthService implements login, token refresh and password recovery.
type AuthService struct {
	users         repository.UserRepository
	refreshTokens repository.RefreshTokenRepository
	resets        repository.PasswordResetRepository
	jwtManager    *auth.JWTManager
	events        event.Publisher
	opts          AuthOptions
	logger        *slog.Logger
	now           func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService creates a new auth service.
func NewAuthService(
	users repository.UserRepository,
	refreshTokens repository.RefreshTokenRepository,
	resets repository.PasswordResetRepository,
	jwtManager *auth.JWTManager,
	events event.Publisher,
	opts AuthOptions,
	logger *slog.Logger,
) *AuthService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.ResetTokenTTL == 0 {
		opts.ResetTokenTTL = time.Hour
	}
	return &AuthService{
		users:         users,
		refreshTokens: refreshTokens,
		resets:        resets,
		jwtManager:    jwtManager,
		events:        events,
		opts:          opts,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *domain.User
}

// Login authenticates by email, or by name when the identifier is not
// email-shaped, and issues an access and a refresh token.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		recordAuthEvent("login", outcomeFailure)
		return nil, apperrors.InvalidCredentials()
	}

	user, err := s.lookupIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Spend the same bcrypt time as a real comparison.
			s.compareDummy(password)
			recordAuthEvent("login", outcomeFailure)
			return nil, apperrors.InvalidCredentials()
		}
		recordAuthEvent("login", outcomeError)
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if !checkPassword(user.PasswordHash, password) {
		recordAuthEvent("login", outcomeFailure)
		return nil, apperrors.InvalidCredentials()
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID)
	if err != nil {
		recordAuthEvent("login", outcomeError)
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refreshToken, err := s.issueRefreshToken(ctx, user.ID)
	if err != nil {
		recordAuthEvent("login", outcomeError)
		return nil, err
	}

	recordAuthEvent("login", outcomeSuccess)
	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role),
	)

	return &LoginResult{AccessToken: accessToken, RefreshToken: refreshToken, User: user}, nil
}

func (s *AuthService) lookupIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	if domain.LooksLikeEmail(identifier) {
		return s.users.GetByEmail(ctx, domain.NormalizeEmail(identifier))
	}
	return s.users.GetByName(ctx, identifier)
}

func (s *AuthService) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.opts.BcryptCost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}

func (s *AuthService) issueRefreshToken(ctx context.Context, userID string) (string, error) {
	token, expiresAt, err := s.jwtManager.GenerateRefreshToken(userID)
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.refreshTokens.Create(ctx, userID, hashToken(token), expiresAt); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return token, nil
}

// Refresh exchanges a refresh token for a new access token. The stored row
// must be valid and unexpired, and the token itself must verify for the same
// subject. The refresh token is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		recordAuthEvent("refresh", outcomeFailure)
		return "", apperrors.InvalidToken("refresh token is required")
	}

	stored, err := s.refreshTokens.GetByHash(ctx, hashToken(refreshToken))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			recordAuthEvent("refresh", outcomeFailure)
			return "", apperrors.InvalidToken("invalid refresh token")
		}
		recordAuthEvent("refresh", outcomeError)
		return "", fmt.Errorf("get refresh token: %w", err)
	}

	if !stored.Valid {
		recordAuthEvent("refresh", outcomeFailure)
		return "", apperrors.InvalidToken("refresh token has been revoked")
	}
	if !stored.Usable(s.now()) {
		recordAuthEvent("refresh", outcomeFailure)
		return "", apperrors.InvalidToken("refresh token has expired")
	}

	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		recordAuthEvent("refresh", outcomeFailure)
		return "", apperrors.InvalidToken("invalid refresh token")
	}
	if claims.Subject != stored.UserID {
		recordAuthEvent("refresh", outcomeFailure)
		s.logger.WarnContext(ctx, "refresh token subject does not match stored owner",
			slog.String("user_id", stored.UserID),
		)
		return "", apperrors.InvalidToken("invalid refresh token")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(claims.Subject)
	if err != nil {
		recordAuthEvent("refresh", outcomeError)
		return "", fmt.Errorf("generate access token: %w", err)
	}

	recordAuthEvent("refresh", outcomeSuccess)
	return accessToken, nil
}

// Logout invalidates a refresh token. Unknown or already invalid tokens are
// not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.refreshTokens.Revoke(ctx, hashToken(refreshToken)); err != nil {
		recordAuthEvent("logout", outcomeError)
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	recordAuthEvent("logout", outcomeSuccess)
	return nil
}

// ForgotPassword creates a reset token when the email belongs to a user and
// publishes it for delivery. It never reports whether the email exists. The
// raw token is returned only when ExposeResetToken is set.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) string {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return ""
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			recordAuthEvent("forgot_password", outcomeFailure)
			s.logger.InfoContext(ctx, "password reset requested for unknown email")
			return ""
		}
		recordAuthEvent("forgot_password", outcomeError)
		s.logger.ErrorContext(ctx, "failed to look up user for password reset",
			slog.String("error", err.Error()),
		)
		return ""
	}

	token, err := newResetToken()
	if err != nil {
		recordAuthEvent("forgot_password", outcomeError)
		s.logger.ErrorContext(ctx, "failed to generate reset token",
			slog.String("error", err.Error()),
		)
		return ""
	}

	now := s.now()
	reset := &domain.PasswordResetToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TokenHash: hashToken(token),
		ExpiresAt: now.Add(s.opts.ResetTokenTTL),
		CreatedAt: now,
	}
	if err := s.resets.Create(ctx, reset); err != nil {
		recordAuthEvent("forgot_password", outcomeError)
		s.logger.ErrorContext(ctx, "failed to store reset token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return ""
	}

	if err := s.events.PublishPasswordResetRequested(ctx, user, token, reset.ExpiresAt); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish password_reset.requested event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	recordAuthEvent("forgot_password", outcomeSuccess)
	s.logger.InfoContext(ctx, "password reset token issued",
		slog.String("user_id", user.ID),
	)

	if s.opts.ExposeResetToken {
		return token
	}
	return ""
}

// ResetPassword redeems a reset token: the password is replaced, the token
// marked used and every refresh token of the user invalidated.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if token == "" {
		recordAuthEvent("reset_password", outcomeFailure)
		return apperrors.InvalidOrExpiredToken()
	}

	reset, err := s.resets.GetByHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			recordAuthEvent("reset_password", outcomeFailure)
			return apperrors.InvalidOrExpiredToken()
		}
		recordAuthEvent("reset_password", outcomeError)
		return fmt.Errorf("get reset token: %w", err)
	}

	now := s.now()
	if !reset.Usable(now) {
		recordAuthEvent("reset_password", outcomeFailure)
		return apperrors.InvalidOrExpiredToken()
	}

	passwordHash, err := hashPassword(newPassword, s.opts.BcryptCost)
	if err != nil {
		recordAuthEvent("reset_password", outcomeError)
		return err
	}

	if err := s.resets.Redeem(ctx, reset.ID, reset.UserID, passwordHash, now); err != nil {
		if errors.Is(err, apperrors.ErrConflict) || errors.Is(err, apperrors.ErrNotFound) {
			recordAuthEvent("reset_password", outcomeFailure)
			return apperrors.InvalidOrExpiredToken()
		}
		recordAuthEvent("reset_password", outcomeError)
		return fmt.Errorf("redeem reset token: %w", err)
	}

	recordAuthEvent("reset_password", outcomeSuccess)
	s.logger.InfoContext(ctx, "password reset",
		slog.String("user_id", reset.UserID),
	)
	return nil
}

// ChangePassword replaces the password of an authenticated user after
// checking the current one. All of the user's sessions are invalidated.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			recordAuthEvent("change_password", outcomeFailure)
			return apperrors.Unauthenticated("user no longer exists")
		}
		recordAuthEvent("change_password", outcomeError)
		return fmt.Errorf("get user: %w", err)
	}

	if !checkPassword(user.PasswordHash, currentPassword) {
		recordAuthEvent("change_password", outcomeFailure)
		return apperrors.InvalidCredentials()
	}

	passwordHash, err := hashPassword(newPassword, s.opts.BcryptCost)
	if err != nil {
		recordAuthEvent("change_password", outcomeError)
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		recordAuthEvent("change_password", outcomeError)
		return fmt.Errorf("update password: %w", err)
	}

	recordAuthEvent("change_password", outcomeSuccess)
	s.logger.InfoContext(ctx, "password changed",
		slog.String("user_id", userID),
	)
	return nil
}
