package domain

import "time"

// Signup request statuses.
const (
	SignupPending  = "PENDING"
	SignupApproved = "APPROVED"
	SignupRejected = "REJECTED"
)

// IsValidSignupStatus checks whether s is a known signup status.
func IsValidSignupStatus(s string) bool {
	switch s {
	case SignupPending, SignupApproved, SignupRejected:
		return true
	default:
		return false
	}
}

// SignupRequest is a self-service request for an account, decided by an
// ADMIN or SECRETARY.
type SignupRequest struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	RoleRequested string     `json:"roleRequested"`
	Status        string     `json:"status"`
	Reason        string     `json:"reason,omitempty"`
	DecidedAt     *time.Time `json:"decidedAt,omitempty"`
	DecidedByID   string     `json:"decidedById,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// IsPending reports whether the request still awaits a decision.
func (r *SignupRequest) IsPending() bool {
	return r.Status == SignupPending
}

// Decide records a decision. A reason is kept only on rejection.
func (r *SignupRequest) Decide(approved bool, deciderID, reason string, at time.Time) {
	r.Status = SignupRejected
	r.Reason = reason
	if approved {
		r.Status = SignupApproved
		r.Reason = ""
	}
	r.DecidedAt = &at
	r.DecidedByID = deciderID
}

// NewUser builds the account created when the request is approved.
func (r *SignupRequest) NewUser(id string, at time.Time) *User {
	return &User{
		ID:           id,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         r.RoleRequested,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}
