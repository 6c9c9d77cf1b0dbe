package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/afci/trajet/internal/auth/store"
	"github.com/afci/trajet/pkg/authsdk"
	"github.com/afci/trajet/pkg/httpx"
	"github.com/afci/trajet/pkg/jwtx"
)

const probeSubject = "readyz-probe"

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe endpoint returning service health status and checks for critical dependencies
//	@Description	Includes uptime, version, and status of the database and the token signer
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	signer jwtx.Signer,
	verifier jwtx.Verifier,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &authsdk.HealthChecks{
			Database: "ok",
			Signer:   "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if err := probeSigner(signer, verifier); err != nil {
			checks.Signer = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, authsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).Truncate(time.Second).String(),
			Version: version,
			Checks:  checks,
		})
	}
}

// probeSigner mints a token and reads it back.
func probeSigner(signer jwtx.Signer, verifier jwtx.Verifier) error {
	tok, err := signer.Issue(probeSubject, nil)
	if err != nil {
		return fmt.Errorf("issue: %w", err)
	}
	p, err := verifier.Verify(tok.Token)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if p.Subject != probeSubject {
		return fmt.Errorf("verify: subject mismatch")
	}
	return nil
}
