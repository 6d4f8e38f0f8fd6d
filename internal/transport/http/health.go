package http

import (
	"context"
	stdhttp "net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck pings one dependency.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleHealth reports liveness and the state of each dependency. Any failing
// check turns the answer into a 503.
func HandleHealth(checks ...HealthCheck) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if r.Method != stdhttp.MethodGet {
			writeError(w, stdhttp.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		resp := healthResponse{Status: "ok"}
		status := stdhttp.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for _, check := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := check.Ping(ctx)
			cancel()
			if err != nil {
				resp.Checks[check.Name] = err.Error()
				resp.Status = "degraded"
				status = stdhttp.StatusServiceUnavailable
				continue
			}
			resp.Checks[check.Name] = "ok"
		}
		writeJSON(w, status, resp)
	}
}
