package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Me returns the authenticated caller's profile and roles.
func (s *Session) Me(ctx context.Context) (*MeResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/auth/me", nil, nil)
	if err != nil {
		return nil, err
	}

	var me MeResponse
	if err := decodeJSON(resp, &me, http.StatusOK); err != nil {
		return nil, err
	}
	return &me, nil
}

// ListSessions returns the caller's active refresh tokens, newest first.
func (s *Session) ListSessions(ctx context.Context) (*ListSessionsResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/auth/sessions", nil, nil)
	if err != nil {
		return nil, err
	}

	var sessions ListSessionsResponse
	if err := decodeJSON(resp, &sessions, http.StatusOK); err != nil {
		return nil, err
	}
	return &sessions, nil
}

// RevokeSession revokes one of the caller's own sessions.
func (s *Session) RevokeSession(ctx context.Context, id string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/api/auth/sessions/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

// AdminPing calls the ADMIN-only ping endpoint.
func (s *Session) AdminPing(ctx context.Context) (*PingResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/admin/ping", nil, nil)
	if err != nil {
		return nil, err
	}

	var ping PingResponse
	if err := decodeJSON(resp, &ping, http.StatusOK); err != nil {
		return nil, err
	}
	return &ping, nil
}

// ListRoles calls the ADMIN-only role listing.
func (s *Session) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/admin/roles", nil, nil)
	if err != nil {
		return nil, err
	}

	var out RolesResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Roles, nil
}
