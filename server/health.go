package server

import (
	"context"
	"net/http"
	"time"
)

// HealthHandler pings every registered backing store.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := make(map[string]string, len(s.deps.Health))
		healthy := true

		for name, checker := range s.deps.Health {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			err := checker.Ping(ctx)
			cancel()
			if err != nil {
				statuses[name] = "unreachable"
				healthy = false
				continue
			}
			statuses[name] = "ok"
		}

		if !healthy {
			s.writeJSON(w, http.StatusServiceUnavailable, envelope{Success: false, Error: "unhealthy", Data: statuses})
			return
		}
		s.writeSuccess(w, statuses)
	}
}
