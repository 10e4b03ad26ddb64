package http

import (
	"context"
	"net/http"
	"time"

	"github.com/mona-chen/jean/pkg/authsdk"
	"github.com/mona-chen/jean/pkg/httpx"
)

// Pinger is satisfied by the store and the cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessChecker reports whether token signing is possible.
type ReadinessChecker interface {
	IsReady() bool
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check
//	@Description	Checks the database, the cache and the TEP signing key. Any failure returns 503 with status degraded.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, db, kv Pinger, signer ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &authsdk.HealthChecks{Database: "ok", Cache: "ok", Signer: "ok"}
		status, code := "ok", http.StatusOK
		degrade := func(field *string, msg string) {
			*field = "error: " + msg
			status, code = "degraded", http.StatusServiceUnavailable
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			degrade(&checks.Database, err.Error())
		}
		if err := kv.Ping(ctx); err != nil {
			degrade(&checks.Cache, err.Error())
		}
		if !signer.IsReady() {
			degrade(&checks.Signer, "no keys loaded")
		}

		httpx.WriteJSON(w, code, authsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
