package domain

import "time"

// RefreshToken is the persisted record of an issued refresh token. Only the
// SHA-256 hash of the token is stored.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Valid     bool
	CreatedAt time.Time
	RevokedAt *time.Time
}

// Usable reports whether the token can still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t.Valid && now.Before(t.ExpiresAt)
}

// PasswordResetToken is a single-use token for resetting a password. Only
// its hash is stored.
type PasswordResetToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Usable reports whether the token is unused and unexpired at now.
func (t *PasswordResetToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
