package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/afci/trajet/internal/auth/domain"
	"github.com/afci/trajet/internal/auth/service"
	"github.com/afci/trajet/pkg/authsdk"
	"github.com/afci/trajet/pkg/httpx"
	"github.com/afci/trajet/pkg/jwtx"
	"github.com/afci/trajet/pkg/slogx"
)

// AuthHandler serves the credential endpoints: login, refresh and logout.
type AuthHandler struct {
	AuthService    *service.AuthService
	RefreshService *service.RefreshService
}

// HandleLogin godoc
//
//	@Summary		Log in with email and password
//	@Description	Exchanges credentials for an access token and a refresh token.
//	@Description	An unknown email and a wrong password produce the same response.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_credentials"
//	@Failure		403		{object}	authsdk.ErrorResponse	"account_locked or account_disabled"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Router			/api/auth/login [post]
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.AuthService.Login(r.Context(), req.Email, req.Password, clientMetadata(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(res))
}

// HandleRefresh godoc
//
//	@Summary		Rotate a refresh token
//	@Description	Exchanges a refresh token for a new access token and a new refresh token.
//	@Description	The presented refresh token is revoked and cannot be used again.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_grant"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Router			/api/auth/refresh [post]
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.RefreshToken == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.RefreshService.Rotate(r.Context(), req.RefreshToken, clientMetadata(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(res))
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Revokes the presented refresh token. Always answers 200 so callers
//	@Description	learn nothing about whether the token existed.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	false	"Refresh token"
//	@Success		200		{object}	object
//	@Router			/api/auth/logout [post]
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err == nil && req.RefreshToken != "" {
		if err := h.RefreshService.RevokeBySecret(r.Context(), req.RefreshToken); err != nil {
			slogx.FromContext(r.Context()).Error("logout revoke failed", slog.Any("error", err))
		}
	}
	httpx.WriteJSON(w, http.StatusOK, struct{}{})
}

func clientMetadata(r *http.Request) domain.ClientMetadata {
	return domain.ClientMetadata{
		UserAgent: r.UserAgent(),
		SourceIP:  httpx.ClientIP(r),
	}
}

func tokenResponse(res domain.LoginResult) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:      res.Tokens.AccessToken,
		TokenType:        "Bearer",
		ExpiresIn:        int(res.Tokens.AccessTTL().Seconds()),
		RefreshToken:     res.Tokens.RefreshToken,
		RefreshExpiresIn: int(res.Tokens.RefreshTTL().Seconds()),
		SubjectID:        res.Principal.SubjectID,
		UserID:           res.Principal.UserID,
		Email:            res.Principal.Email,
		FirstName:        res.Principal.FirstName,
		LastName:         res.Principal.LastName,
		Roles:            nonNil(res.Principal.Roles),
		Authorities:      nonNil(jwtx.RoleScopes(res.Principal.Roles)),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// writeServiceError maps service errors onto API errors. Unknown identity
// and bad password share one response.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownIdentity),
		errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrAccountLocked):
		authsdk.ErrAccountLocked.WriteError(w)
	case errors.Is(err, service.ErrAccountDisabled):
		authsdk.ErrAccountDisabled.WriteError(w)
	case errors.Is(err, service.ErrInvalidRefresh):
		authsdk.ErrInvalidGrant.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
		authsdk.ErrServerError.WriteError(w)
	}
}
