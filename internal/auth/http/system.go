package http

import (
	"context"
	"net/http"
	"time"

	"github.com/conychips/auth/internal/auth/store"
	"github.com/conychips/auth/pkg/httpx"
	"github.com/conychips/auth/pkg/jwtx"
)

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JWKSHandler godoc
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify tokens issued by this service.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	jwtx.JWKS
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(jwks func() jwtx.JWKS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, jwks())
	}
}

// LivezHandler godoc
//
//	@Summary		Liveness probe
//	@Description	Always 200 while the process is serving.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Checks the database, the signing keys and Redis. Redis being down only degrades the service: tokens are still verified, without the revocation check.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse	"ok or degraded"
//	@Failure		503	{object}	HealthResponse	"database or signer not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	signerReady func() error,
	cache Pinger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		checks := &HealthChecks{Database: "ok", Signer: "ok", Redis: "ok"}
		status := "ok"
		code := http.StatusOK

		if err := st.Ping(ctx); err != nil {
			checks.Database = "error: " + err.Error()
			status = "unavailable"
			code = http.StatusServiceUnavailable
		}

		if err := signerReady(); err != nil {
			checks.Signer = "error: " + err.Error()
			status = "unavailable"
			code = http.StatusServiceUnavailable
		}

		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				checks.Redis = "error: " + err.Error()
				if code == http.StatusOK {
					status = "degraded"
				}
			}
		}

		httpx.WriteJSON(w, code, HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
