package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/siapee/siapee/pkg/database"
	apperrors "github.com/siapee/siapee/pkg/errors"
	"github.com/siapee/siapee/services/identity/internal/domain"
)

const signupColumns = `id, name, email, password_hash, role_requested, status, COALESCE(reason, ''), decided_at, COALESCE(decided_by_id::text, ''), created_at`

const (
	insertSignup = `
		INSERT INTO signup_requests (id, name, email, password_hash, role_requested, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	selectSignupByID = `SELECT ` + signupColumns + ` FROM signup_requests WHERE id = $1`

	existsSignupByEmail = `SELECT EXISTS(SELECT 1 FROM signup_requests WHERE email = $1)`

	// An empty $1 disables the status filter.
	listSignups = `
		SELECT ` + signupColumns + `
		FROM signup_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	countSignups = `SELECT COUNT(*) FROM signup_requests WHERE ($1 = '' OR status = $1)`

	decideSignup = `
		UPDATE signup_requests
		SET status = $1, reason = NULLIF($2, ''), decided_at = $3, decided_by_id = $4
		WHERE id = $5 AND status = 'PENDING'`

	insertUserUnlessEmailTaken = `
		INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO NOTHING`
)

// SignupRepository implements repository.SignupRepository using PostgreSQL.
type SignupRepository struct {
	db database.DBTX
}

// NewSignupRepository creates a new PostgreSQL-backed signup request repository.
func NewSignupRepository(db database.DBTX) *SignupRepository {
	return &SignupRepository{db: db}
}

// Create inserts a new signup request.
func (r *SignupRepository) Create(ctx context.Context, s *domain.SignupRequest) (err error) {
	ctx, end := database.TraceQuery(ctx, "signup_requests.create", insertSignup)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, insertSignup,
		s.ID,
		s.Name,
		s.Email,
		s.PasswordHash,
		s.RoleRequested,
		s.Status,
		s.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("signup request", "email", s.Email)
		}
		return fmt.Errorf("insert signup request: %w", err)
	}

	return nil
}

// GetByID retrieves a request by its ID. Malformed IDs are reported as not found.
func (r *SignupRepository) GetByID(ctx context.Context, id string) (_ *domain.SignupRequest, err error) {
	if uuid.Validate(id) != nil {
		return nil, apperrors.ErrNotFound
	}

	ctx, end := database.TraceQuery(ctx, "signup_requests.get_by_id", selectSignupByID)
	defer func() { end(err) }()

	s, err := scanSignup(r.db.QueryRow(ctx, selectSignupByID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan signup request: %w", err)
	}
	return s, nil
}

// ExistsByEmail reports whether any request exists for the email.
func (r *SignupRepository) ExistsByEmail(ctx context.Context, email string) (_ bool, err error) {
	ctx, end := database.TraceQuery(ctx, "signup_requests.exists_by_email", existsSignupByEmail)
	defer func() { end(err) }()

	var exists bool
	if err = r.db.QueryRow(ctx, existsSignupByEmail, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("check signup request email: %w", err)
	}
	return exists, nil
}

// List returns one page of requests, newest first.
func (r *SignupRepository) List(ctx context.Context, status string, limit, offset int) (_ []domain.SignupRequest, _ int, err error) {
	ctx, end := database.TraceQuery(ctx, "signup_requests.list", listSignups)
	defer func() { end(err) }()

	var total int
	if err = r.db.QueryRow(ctx, countSignups, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count signup requests: %w", err)
	}

	rows, err := r.db.Query(ctx, listSignups, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list signup requests: %w", err)
	}
	defer rows.Close()

	requests := []domain.SignupRequest{}
	for rows.Next() {
		s, err := scanSignup(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan signup request row: %w", err)
		}
		requests = append(requests, *s)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate signup request rows: %w", err)
	}

	return requests, total, nil
}

// Decide stores the decision and, on approval, creates the user in the same
// transaction. The status update only matches a PENDING row, so of two
// concurrent decisions exactly one wins.
func (r *SignupRepository) Decide(ctx context.Context, s *domain.SignupRequest, u *domain.User) (created bool, err error) {
	ctx, end := database.TraceQuery(ctx, "signup_requests.decide", decideSignup)
	defer func() { end(err) }()

	err = database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, decideSignup, s.Status, s.Reason, s.DecidedAt, s.DecidedByID, s.ID)
		if err != nil {
			return fmt.Errorf("update signup request: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("signup request %s is not pending: %w", s.ID, apperrors.ErrConflict)
		}

		if u == nil {
			return nil
		}

		ct, err = tx.Exec(ctx, insertUserUnlessEmailTaken,
			u.ID,
			u.Name,
			u.Email,
			u.PasswordHash,
			u.Role,
			u.CreatedAt,
			u.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert approved user: %w", err)
		}
		created = ct.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, err
	}

	return created, nil
}

func scanSignup(row pgx.Row) (*domain.SignupRequest, error) {
	var s domain.SignupRequest
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Email,
		&s.PasswordHash,
		&s.RoleRequested,
		&s.Status,
		&s.Reason,
		&s.DecidedAt,
		&s.DecidedByID,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
