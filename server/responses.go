package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/listkeeper/listkeeper/internal/errors"
)

// envelope is the JSON shape of every response.
type envelope struct {
	Success           bool   `json:"success"`
	Data              any    `json:"data,omitempty"`
	Error             string `json:"error,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

func (s *Server) writeSuccess(w http.ResponseWriter, data any) {
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

// writeError maps a taxonomy error onto a status code and a client-safe
// message. Validation messages pass through; everything else gets a fixed
// generic string so internal detail never leaks.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, message := statusForError(err)

	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("request failed")
		if apperrors.Is(err, apperrors.ErrStoreUnavailable) {
			s.deps.Metrics.RecordStoreError("kv")
		}
	}

	s.writeJSON(w, status, envelope{Success: false, Error: message})
}

// writeRateLimited answers a limiter denial; status and message come from the
// taxonomy mapping so 429 responses cannot drift from it.
func (s *Server) writeRateLimited(w http.ResponseWriter, retryAfterSeconds int) {
	status, message := statusForError(apperrors.ErrRateLimited)
	s.writeJSON(w, status, envelope{
		Success:           false,
		Error:             message,
		RetryAfterSeconds: retryAfterSeconds,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func statusForError(err error) (int, string) {
	switch {
	case apperrors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case apperrors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case apperrors.Is(err, apperrors.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case apperrors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests, "rate limited"
	case apperrors.Is(err, apperrors.ErrDuplicateResource):
		return http.StatusConflict, "email already registered"
	case apperrors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not found"
	case apperrors.Is(err, apperrors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
