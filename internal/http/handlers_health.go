package httpx

import (
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const healthResponse = `{"status":"ok"}`

// HealthChecker is a dependency probed by /readyz.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

// Health calls f(ctx).
func (f HealthCheckFunc) Health(ctx context.Context) error { return f(ctx) }

// healthHandler returns a simple 200 OK status for liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		return
	}
}

// readyHandler probes every checker concurrently and reports 503 when any fails.
func readyHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		results := make(map[string]string, len(checks))
		errs := make([]error, len(checks))
		names := make([]string, 0, len(checks))
		var g errgroup.Group
		i := 0
		for name, check := range checks {
			idx := i
			names = append(names, name)
			g.Go(func() error {
				errs[idx] = check.Health(ctx)
				return nil
			})
			i++
		}
		_ = g.Wait()

		status := http.StatusOK
		for idx, name := range names {
			if errs[idx] != nil {
				results[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		WriteJSON(w, status, map[string]any{"status": overall, "checks": results})
	}
}
