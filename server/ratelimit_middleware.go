package server

import (
	"math"
	"net"
	"net/http"
	"strings"
)

// RateLimitMiddleware gates a route on the fixed-window limiter for the
// given action, keyed by client IP. Denied requests get a 429 with the
// retry-after value in the error body.
func (s *Server) RateLimitMiddleware(action string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			decision, err := s.deps.Limiter.Check(r.Context(), action, clientKey(r))
			if err != nil {
				s.writeError(w, err)
				return
			}
			if !decision.Allowed {
				s.deps.Metrics.RecordRateLimitBlock(action)
				s.writeRateLimited(w, int(math.Ceil(decision.RetryAfter.Seconds())))
				return
			}
			next(w, r)
		}
	}
}

// clientKey identifies the client for rate limiting: the first hop of
// X-Forwarded-For when present (the service sits behind a proxy in
// production), otherwise the remote address without its port.
func clientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx != -1 {
			forwarded = forwarded[:idx]
		}
		return strings.TrimSpace(forwarded)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
