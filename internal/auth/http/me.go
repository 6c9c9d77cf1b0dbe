package http

import (
	"net/http"

	"github.com/afci/trajet/internal/auth/service"
	"github.com/afci/trajet/pkg/authsdk"
	"github.com/afci/trajet/pkg/httpx"
	"github.com/afci/trajet/pkg/jwtx"
)

type MeHandler struct {
	AccountService *service.AccountService
}

// ServeHTTP godoc
//
//	@Summary		Current principal
//	@Description	Returns the account behind the bearer token, with its current roles.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.MeResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"unauthorized"
//	@Router			/api/auth/me [get]
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, _ := httpx.PrincipalFromContext(r.Context())

	me, err := h.AccountService.Me(r.Context(), p.Subject)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{
		SubjectID:   me.SubjectID,
		UserID:      me.UserID,
		Email:       me.Email,
		FirstName:   me.FirstName,
		LastName:    me.LastName,
		Roles:       nonNil(me.Roles),
		Authorities: nonNil(jwtx.RoleScopes(me.Roles)),
	})
}
