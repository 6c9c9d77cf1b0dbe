package domain

import (
	"strings"
	"time"
)

// User is the credential record of an account.
type User struct {
	ID                  string
	Email               string // as entered at creation, also the token subject
	NormalizedEmail     string // lookup key, see NormalizeEmail
	PasswordHash        string // bcrypt, or legacy argon2id PHC
	FirstName           string
	LastName            string
	Active              bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastLoginAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsLocked reports whether a lock is set and still in the future at now.
func (u User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// NormalizeEmail is the single normalization applied to login identifiers.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
