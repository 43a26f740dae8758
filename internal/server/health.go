package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// A Checker pings one backend dependency. main wires one per configured
// backend (sqlite, redis, push endpoint).
type Checker func(ctx context.Context) error

func handleHealth(logger *slog.Logger, checks map[string]Checker) http.HandlerFunc {
	type result struct {
		Status string `json:"status"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		out := make(map[string]result, len(checks))
		status := http.StatusOK

		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Error("health check failed", "name", name, "error", err)
				out[name] = result{Status: "error"}
				status = http.StatusServiceUnavailable
				continue
			}
			out[name] = result{Status: "ok"}
		}

		writeJSON(w, status, out)
	}
}
