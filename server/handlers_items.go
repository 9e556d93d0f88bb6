package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	apperrors "github.com/listkeeper/listkeeper/internal/errors"
	"github.com/listkeeper/listkeeper/items"
)

type createItemRequest struct {
	Title string `json:"title"`
}

// ListItemsHandler returns the authenticated user's items.
func (s *Server) ListItemsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.deps.Items.ListByUser(r.Context(), userIDFromContext(r.Context()))
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeSuccess(w, map[string]any{"items": list})
	}
}

// CreateItemHandler adds an item to the authenticated user's list.
func (s *Server) CreateItemHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, errors.Wrap(apperrors.ErrValidation, "invalid request body"))
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			s.writeError(w, errors.Wrap(apperrors.ErrValidation, "title is required"))
			return
		}

		item := &items.Item{
			ID:        uuid.New().String(),
			UserID:    userIDFromContext(r.Context()),
			Title:     req.Title,
			CreatedAt: time.Now(),
		}
		if err := s.deps.Items.Create(r.Context(), item); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeSuccess(w, map[string]any{"item": item})
	}
}

// DeleteItemHandler removes one of the authenticated user's items. Deleting
// an item that does not exist or belongs to someone else reports the same
// 404, so existence of other users' items never leaks.
func (s *Server) DeleteItemHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := r.PathValue("id")
		if itemID == "" {
			s.writeError(w, errors.Wrap(apperrors.ErrValidation, "item id is required"))
			return
		}

		if err := s.deps.Items.Delete(r.Context(), userIDFromContext(r.Context()), itemID); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeSuccess(w, struct{}{})
	}
}
