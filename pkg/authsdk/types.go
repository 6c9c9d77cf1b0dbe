package authsdk

import "time"

// ErrorResponse is the wire shape of APIError, used when decoding.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Auth Types
// ============================================================================

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"Secret123!"`
}

// RefreshRequest is the body of POST /api/auth/refresh and /api/auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	// AccessToken is the signed JWT to send as "Authorization: Bearer ..."
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type" example:"Bearer"`

	// ExpiresIn is the access token lifetime in seconds
	ExpiresIn int `json:"expires_in" example:"900"`

	// RefreshToken is the opaque secret exchanged at /api/auth/refresh
	RefreshToken string `json:"refresh_token"`

	// RefreshExpiresIn is the refresh token lifetime in seconds
	RefreshExpiresIn int `json:"refresh_expires_in" example:"604800"`

	SubjectID string `json:"subject_id" example:"user@example.com"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	// Roles are bare role codes, Authorities the ROLE_ prefixed scopes
	Roles       []string `json:"roles" example:"FORMATEUR"`
	Authorities []string `json:"authorities" example:"ROLE_FORMATEUR"`
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	SubjectID   string   `json:"subject_id"`
	UserID      string   `json:"user_id"`
	Email       string   `json:"email"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Roles       []string `json:"roles"`
	Authorities []string `json:"authorities"`
}

// SessionInfo is one active refresh token of the caller.
type SessionInfo struct {
	ID        string    `json:"id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	UserAgent string    `json:"user_agent,omitempty"`
	SourceIP  string    `json:"source_ip,omitempty"`
}

// ListSessionsResponse is returned by GET /api/auth/sessions.
type ListSessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// PingResponse is returned by GET /api/admin/ping.
type PingResponse struct {
	Status      string   `json:"status" example:"ok"`
	Subject     string   `json:"subject"`
	Authorities []string `json:"authorities" example:"ROLE_ADMIN"`
}

// RoleResponse describes one role known to the service.
type RoleResponse struct {
	Code      string `json:"code" example:"FORMATEUR"`
	Authority string `json:"authority" example:"ROLE_FORMATEUR"`
	Label     string `json:"label"`
	Active    bool   `json:"active"`
}

// RolesResponse is returned by GET /api/admin/roles.
type RolesResponse struct {
	Roles []RoleResponse `json:"roles"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz (readyz adds Checks).
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the status of each dependency.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// DBHealthResponse is returned by GET /api/health/db.
type DBHealthResponse struct {
	Status string `json:"status" example:"ok"`
	Users  int    `json:"users"`
}
