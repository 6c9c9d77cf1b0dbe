package http

import (
	"errors"
	"net/http"

	"github.com/afci/trajet/internal/auth/service"
	"github.com/afci/trajet/internal/auth/store"
	"github.com/afci/trajet/pkg/authsdk"
	"github.com/afci/trajet/pkg/httpx"
)

// SessionsHandler lists and revokes the caller's refresh tokens.
type SessionsHandler struct {
	AccountService *service.AccountService
	RefreshService *service.RefreshService
}

// HandleList godoc
//
//	@Summary		List active sessions
//	@Description	Lists the caller's unrevoked, unexpired refresh tokens, newest first.
//	@Tags			Sessions
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.ListSessionsResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"unauthorized"
//	@Router			/api/auth/sessions [get]
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	tokens, err := h.RefreshService.ListActive(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := authsdk.ListSessionsResponse{Sessions: make([]authsdk.SessionInfo, 0, len(tokens))}
	for _, t := range tokens {
		resp.Sessions = append(resp.Sessions, authsdk.SessionInfo{
			ID:        t.ID,
			IssuedAt:  t.IssuedAt,
			ExpiresAt: t.ExpiresAt,
			UserAgent: t.UserAgent,
			SourceIP:  t.SourceIP,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleRevoke godoc
//
//	@Summary		Revoke a session
//	@Description	Revokes one of the caller's refresh tokens. Tokens owned by other
//	@Description	accounts are reported as not found.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Session ID"
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse	"unauthorized"
//	@Failure		404	{object}	authsdk.ErrorResponse	"not_found"
//	@Router			/api/auth/sessions/{id} [delete]
func (h *SessionsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	err := h.RefreshService.RevokeForUser(r.Context(), userID, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		authsdk.ErrNotFound.WriteError(w)
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionsHandler) callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	p, _ := httpx.PrincipalFromContext(r.Context())
	userID, err := h.AccountService.UserIDForSubject(r.Context(), p.Subject)
	if err != nil {
		writeServiceError(w, r, err)
		return "", false
	}
	return userID, true
}
