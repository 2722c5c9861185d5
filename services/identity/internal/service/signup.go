package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/siapee/siapee/pkg/errors"
	"github.com/siapee/siapee/services/identity/internal/domain"
	"github.com/siapee/siapee/services/identity/internal/event"
	"github.com/siapee/siapee/services/identity/internal/repository"
)

const (
	msgSignupExists  = "a signup request already exists for this email"
	msgAccountExists = "an account already exists for this email"
	msgSignupDecided = "signup request has already been decided"
)

// SignupService implements the signup request workflow.
type SignupService struct {
	signups    repository.SignupRepository
	users      repository.UserRepository
	events     event.Publisher
	bcryptCost int
	logger     *slog.Logger
	now        func() time.Time
}

// NewSignupService creates a new signup service.
func NewSignupService(
	signups repository.SignupRepository,
	users repository.UserRepository,
	events event.Publisher,
	bcryptCost int,
	logger *slog.Logger,
) *SignupService {
	return &SignupService{
		signups:    signups,
		users:      users,
		events:     events,
		bcryptCost: bcryptCost,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SubmitInput holds the parameters of a public signup request.
type SubmitInput struct {
	Name          string
	Email         string
	Password      string
	RoleRequested string
}

// DecideInput holds the parameters of a signup decision.
type DecideInput struct {
	RequestID string
	DeciderID string
	Approved  bool
	Reason    string
}

// Submit stores a PENDING request. Any existing request or account for the
// email is a conflict, whatever its status.
func (s *SignupService) Submit(ctx context.Context, input SubmitInput) (*domain.SignupRequest, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	email := domain.NormalizeEmail(input.Email)
	if !domain.LooksLikeEmail(email) {
		return nil, apperrors.InvalidInput("email must be a valid email address")
	}
	if !domain.IsValidRole(input.RoleRequested) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown role %q", input.RoleRequested))
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	exists, err := s.signups.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check signup email: %w", err)
	}
	if exists {
		return nil, apperrors.Conflict(msgSignupExists)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.Conflict(msgAccountExists)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check user email: %w", err)
	}

	passwordHash, err := hashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	req := &domain.SignupRequest{
		ID:            uuid.New().String(),
		Name:          name,
		Email:         email,
		PasswordHash:  passwordHash,
		RoleRequested: input.RoleRequested,
		Status:        domain.SignupPending,
		CreatedAt:     s.now(),
	}
	if err := s.signups.Create(ctx, req); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.Conflict(msgSignupExists)
		}
		return nil, fmt.Errorf("create signup request: %w", err)
	}

	if err := s.events.PublishSignupSubmitted(ctx, req); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish signup.submitted event",
			slog.String("signup_id", req.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "signup request submitted",
		slog.String("signup_id", req.ID),
		slog.String("role_requested", req.RoleRequested),
	)
	return req, nil
}

// List returns one page of requests newest first and the total count. An
// empty status lists every request.
func (s *SignupService) List(ctx context.Context, status string, limit, offset int) ([]domain.SignupRequest, int, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "" && !domain.IsValidSignupStatus(status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("unknown status %q", status))
	}

	reqs, total, err := s.signups.List(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list signup requests: %w", err)
	}
	return reqs, total, nil
}

// Decide approves or rejects a PENDING request. Approval creates the account
// from the stored password hash and requested role unless one already exists
// for the email.
func (s *SignupService) Decide(ctx context.Context, input DecideInput) (*domain.SignupRequest, error) {
	req, err := s.signups.GetByID(ctx, input.RequestID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("signup request", input.RequestID)
		}
		return nil, fmt.Errorf("get signup request: %w", err)
	}
	if !req.IsPending() {
		return nil, apperrors.Conflict(msgSignupDecided)
	}

	now := s.now()
	req.Decide(input.Approved, input.DeciderID, strings.TrimSpace(input.Reason), now)

	var user *domain.User
	if input.Approved {
		user = req.NewUser(uuid.New().String(), now)
	}

	created, err := s.signups.Decide(ctx, req, user)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.Conflict(msgSignupDecided)
		}
		return nil, fmt.Errorf("decide signup request: %w", err)
	}

	if err := s.events.PublishSignupDecided(ctx, req, created); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish signup.decided event",
			slog.String("signup_id", req.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "signup request decided",
		slog.String("signup_id", req.ID),
		slog.String("status", req.Status),
		slog.String("decided_by", input.DeciderID),
		slog.Bool("user_created", created),
	)
	return req, nil
}
