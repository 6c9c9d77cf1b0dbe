package domain

import "time"

// RefreshToken models the stored refresh token record in the DB. The secret
// handed to the client is never stored, only its fingerprint.
type RefreshToken struct {
	ID        string // UUID
	UserID    string
	TokenHash string // base64url SHA-256 of the secret
	IssuedAt  time.Time
	ExpiresAt time.Time
	Revoked   bool
	RevokedAt *time.Time
	UserAgent string
	SourceIP  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsUsable reports whether the token can still be exchanged at now.
func (t RefreshToken) IsUsable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// ClientMetadata describes the client a refresh token is issued to.
type ClientMetadata struct {
	UserAgent string
	SourceIP  string
}

// TokenPair is what login and refresh hand back: the short-lived access
// token (JWT) and the opaque refresh secret.
type TokenPair struct {
	AccessToken      string
	AccessIssuedAt   time.Time
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshTokenID   string
	RefreshIssuedAt  time.Time
	RefreshExpiresAt time.Time
}

// AccessTTL is the lifetime encoded in the access token.
func (p TokenPair) AccessTTL() time.Duration { return p.AccessExpiresAt.Sub(p.AccessIssuedAt) }

// RefreshTTL is the lifetime of the refresh token.
func (p TokenPair) RefreshTTL() time.Duration { return p.RefreshExpiresAt.Sub(p.RefreshIssuedAt) }

// PrincipalSummary is the caller-facing view of the authenticated account.
type PrincipalSummary struct {
	SubjectID string // token subject, the account email
	UserID    string
	Email     string
	FirstName string
	LastName  string
	Roles     []string // bare role codes, sorted
}

// LoginResult is the outcome of a successful login or refresh rotation.
type LoginResult struct {
	Tokens    TokenPair
	Principal PrincipalSummary
}
