package server

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/listkeeper/listkeeper/auth"
	apperrors "github.com/listkeeper/listkeeper/internal/errors"
)

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	DeviceID    string `json:"device_id,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"device_id,omitempty"`
}

type logoutRequest struct {
	All bool `json:"all,omitempty"`
}

// RegisterHandler creates a new account and returns its first token.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, errors.Wrap(apperrors.ErrValidation, "invalid request body"))
			return
		}

		result, err := s.deps.Auth.Register(r.Context(), req.Email, req.DisplayName, req.Password, req.DeviceID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeSuccess(w, result)
	}
}

// LoginHandler exchanges credentials for a token.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, errors.Wrap(apperrors.ErrValidation, "invalid request body"))
			return
		}

		result, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password, req.DeviceID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrInvalidCredentials) {
				s.deps.Metrics.RecordAuthOutcome(string(auth.ReasonBadCredentials))
			}
			s.writeError(w, err)
			return
		}
		s.writeSuccess(w, result)
	}
}

// LogoutHandler revokes the presenting device's session, or all sessions
// when the body asks for it. The body is optional.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req logoutRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		err := s.deps.Auth.Logout(r.Context(), userIDFromContext(r.Context()), deviceIDFromContext(r.Context()), req.All)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeSuccess(w, struct{}{})
	}
}

// RefreshHandler issues a new token for the authenticated user, superseding
// the one it was called with.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := s.deps.Auth.Refresh(r.Context(), userIDFromContext(r.Context()), deviceIDFromContext(r.Context()))
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeSuccess(w, result)
	}
}

// MeHandler returns the authenticated user's record.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.deps.Users.GetByID(r.Context(), userIDFromContext(r.Context()))
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				// Token verified but the account is gone; same 401 as any
				// other authentication failure.
				s.writeError(w, apperrors.ErrUnauthenticated)
				return
			}
			s.writeError(w, err)
			return
		}
		s.writeSuccess(w, map[string]any{"user": user})
	}
}
