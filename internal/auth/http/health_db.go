package http

import (
	"log/slog"
	"net/http"

	"github.com/afci/trajet/internal/auth/store"
	"github.com/afci/trajet/pkg/authsdk"
	"github.com/afci/trajet/pkg/httpx"
	"github.com/afci/trajet/pkg/slogx"
)

// DBHealthHandler godoc
//
//	@Summary		Database health
//	@Description	Runs a trivial query against the users table.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.DBHealthResponse
//	@Failure		503	{object}	authsdk.ErrorResponse
//	@Router			/api/health/db [get]
func DBHealthHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := st.Users().Count(r.Context())
		if err != nil {
			slogx.FromContext(r.Context()).Error("db health check failed", slog.Any("error", err))
			httpx.WriteError(w, http.StatusServiceUnavailable, authsdk.ErrorCodeServerError, "database unavailable")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, authsdk.DBHealthResponse{Status: "ok", Users: n})
	}
}
