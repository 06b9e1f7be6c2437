package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CodeArtisanRiz/media-blob-kit/internal/api/middleware"
	"github.com/CodeArtisanRiz/media-blob-kit/internal/logger"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/store"
)

// UserHandler handles user administration endpoints.
type UserHandler struct {
	store *store.GORMStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(s *store.GORMStore) *UserHandler {
	return &UserHandler{store: s}
}

// Delete handles DELETE /users/{username}. Superuser only; the route is
// gated by RequireRole. An account that still owns projects cannot be
// removed, and neither can the caller's own account.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return
	}

	username := chi.URLParam(r, "username")
	if username == claims.Username {
		Conflict(w, "Cannot delete your own account")
		return
	}

	user, err := h.store.GetUser(r.Context(), username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			NotFound(w, "User not found")
			return
		}
		InternalServerError(w, "Failed to fetch user")
		return
	}

	// Projects, soft-deleted ones included, reference their owner; the
	// rows would be orphaned.
	owned, err := h.store.CountProjectsForOwner(r.Context(), user.ID)
	if err != nil {
		InternalServerError(w, "Failed to check owned projects")
		return
	}
	if owned > 0 {
		Conflict(w, "User still owns projects")
		return
	}

	if err := h.store.DeleteUser(r.Context(), username); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			NotFound(w, "User not found")
			return
		}
		InternalServerError(w, "Failed to delete user")
		return
	}

	logger.Info("user deleted", "username", username, "deleted_by", claims.Username)
	WriteNoContent(w)
}
