package http

import (
	"net/http"

	"github.com/afci/trajet/internal/auth/service"
	"github.com/afci/trajet/pkg/authsdk"
	"github.com/afci/trajet/pkg/httpx"
	"github.com/afci/trajet/pkg/jwtx"
)

// AdminPingHandler godoc
//
//	@Summary		Administrator ping
//	@Description	Answers only for callers holding ROLE_ADMIN.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.PingResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"unauthorized"
//	@Failure		403	{object}	authsdk.ErrorResponse	"forbidden"
//	@Router			/api/admin/ping [get]
func AdminPingHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := httpx.PrincipalFromContext(r.Context())
	httpx.WriteJSON(w, http.StatusOK, authsdk.PingResponse{
		Status:      "ok",
		Subject:     p.Subject,
		Authorities: nonNil(p.Authorities()),
	})
}

type AdminRolesHandler struct {
	AccountService *service.AccountService
}

// ServeHTTP godoc
//
//	@Summary		List roles
//	@Description	Lists every role with its ROLE_ prefixed authority. ROLE_ADMIN only.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.RolesResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"unauthorized"
//	@Failure		403	{object}	authsdk.ErrorResponse	"forbidden"
//	@Router			/api/admin/roles [get]
func (h *AdminRolesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roles, err := h.AccountService.ListRoles(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := authsdk.RolesResponse{Roles: make([]authsdk.RoleResponse, 0, len(roles))}
	for _, role := range roles {
		resp.Roles = append(resp.Roles, authsdk.RoleResponse{
			Code:      role.Code,
			Authority: jwtx.RoleScope(role.Code),
			Label:     role.Label,
			Active:    role.Active,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
