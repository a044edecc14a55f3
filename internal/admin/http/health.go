package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/aussiebroadwan/backoffice/pkg/cachex"
	"github.com/aussiebroadwan/backoffice/pkg/httpx"
)

type healthChecks struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

type healthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *healthChecks `json:"checks,omitempty"`
}

// LivezHandler always answers 200 while the process is up.
//
//	@Summary		Liveness
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	healthResponse	"Process is up"
//	@Router			/livez [get]
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, healthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// StatusHandler reports database and cache reachability, answering 503 when
// either is down.
//
//	@Summary		Readiness
//	@Description	Database and cache reachability.
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	healthResponse	"All dependencies reachable"
//	@Failure		503	{object}	healthResponse	"A dependency is down"
//	@Router			/status [get]
func StatusHandler(startTime time.Time, version string, st store.Store, cache cachex.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &healthChecks{
			Database: "ok",
			Cache:    "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if err := cache.Ping(r.Context()); err != nil {
			checks.Cache = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, healthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
