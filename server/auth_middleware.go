package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/listkeeper/listkeeper/auth"
	apperrors "github.com/listkeeper/listkeeper/internal/errors"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUserID stores the authenticated user ID
	ContextKeyUserID ContextKey = "user_id"
	// ContextKeyDeviceID stores the device-session identifier from the token
	ContextKeyDeviceID ContextKey = "device_id"
)

// RequireAuth is middleware that gates a route behind a valid bearer token
// with a live session. Every failure path - missing header, malformed or
// expired token, revoked or superseded session - produces the identical 401
// response; the distinction survives only in logs and metrics.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rawToken := bearerToken(r)

			identity, reason, err := s.deps.Auth.Authenticate(r.Context(), rawToken)
			s.deps.Metrics.RecordAuthOutcome(string(reason))
			if err != nil {
				if !apperrors.Is(err, apperrors.ErrUnauthenticated) {
					// Store failure: not an auth decision, surface as 5xx.
					s.writeError(w, err)
					return
				}
				s.logger.Debug().Str("reason", string(reason)).Msg("request rejected")
				s.writeError(w, apperrors.ErrUnauthenticated)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, identity.UserID)
			ctx = context.WithValue(ctx, ContextKeyDeviceID, auth.DeviceID(identity))
			next(w, r.WithContext(ctx))
		}
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header; it returns "" for any other shape.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func userIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(ContextKeyUserID).(string)
	return userID
}

func deviceIDFromContext(ctx context.Context) string {
	deviceID, _ := ctx.Value(ContextKeyDeviceID).(string)
	return deviceID
}
