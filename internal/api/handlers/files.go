package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/CodeArtisanRiz/media-blob-kit/internal/api/middleware"
	"github.com/CodeArtisanRiz/media-blob-kit/internal/logger"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/objectstore"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/store"
)

// presignTTL is the lifetime of signed content URLs.
const presignTTL = time.Hour

// FileHandler handles the JWT-authenticated file endpoints.
type FileHandler struct {
	store   *store.GORMStore
	objects objectstore.Store
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(s *store.GORMStore, objects objectstore.Store) *FileHandler {
	return &FileHandler{
		store:   s,
		objects: objects,
	}
}

// List handles GET /files.
// Superusers see every file (optionally filtered by project_id); everyone
// else sees only files in projects they own.
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return
	}

	page := parsePage(r)
	projectID := r.URL.Query().Get("project_id")

	var (
		files []*models.File
		total int64
		err   error
	)
	switch {
	case claims.IsSuperuser():
		files, total, err = h.store.ListFiles(r.Context(), projectID, page)
	case projectID != "":
		var project *models.Project
		project, err = h.store.GetProject(r.Context(), projectID)
		if err != nil {
			if errors.Is(err, models.ErrProjectNotFound) {
				NotFound(w, "Project not found")
				return
			}
			InternalServerError(w, "Failed to list files")
			return
		}
		if project.OwnerID != claims.UserID {
			Forbidden(w, "Access denied to this project")
			return
		}
		files, total, err = h.store.ListFiles(r.Context(), projectID, page)
	default:
		files, total, err = h.store.ListFilesForOwner(r.Context(), claims.UserID, page)
	}
	if err != nil {
		InternalServerError(w, "Failed to list files")
		return
	}

	data := make([]FileResponse, 0, len(files))
	for _, f := range files {
		data = append(data, fileToResponse(f))
	}
	WriteJSONOK(w, paginatedResponse(data, total, page))
}

// Get handles GET /files/{id}.
func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	file, ok := h.authorizedFile(w, r)
	if !ok {
		return
	}
	WriteJSONOK(w, fileToResponse(file))
}

// Content handles GET /files/{id}/content?variant=<name>.
// Issues a 307 redirect to a one-hour presigned URL for the original or the
// named variant.
func (h *FileHandler) Content(w http.ResponseWriter, r *http.Request) {
	file, ok := h.authorizedFile(w, r)
	if !ok {
		return
	}

	stored := file.S3Key
	if variant := r.URL.Query().Get("variant"); variant != "" {
		v, ok := file.VariantsMap[variant]
		if !ok {
			NotFound(w, "Variant not found")
			return
		}
		stored = v
	}

	url, err := h.objects.PresignGet(r.Context(), h.objects.Resolve(stored), presignTTL)
	if err != nil {
		InternalServerError(w, "Failed to sign content URL")
		return
	}

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Delete handles DELETE /files/{id}.
// Object deletion is best-effort; the row (and its jobs) always goes.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	file, ok := h.authorizedFile(w, r)
	if !ok {
		return
	}

	h.deleteObject(r, file.S3Key)
	for _, stored := range file.VariantsMap {
		h.deleteObject(r, stored)
	}

	if err := h.store.DeleteFile(r.Context(), file.ID); err != nil {
		if errors.Is(err, models.ErrFileNotFound) {
			NotFound(w, "File not found")
			return
		}
		InternalServerError(w, "Failed to delete file")
		return
	}

	WriteNoContent(w)
}

// deleteObject removes one stored key or URL, logging failures.
func (h *FileHandler) deleteObject(r *http.Request, stored string) {
	key := h.objects.Resolve(stored)
	if key == "" {
		return
	}
	if err := h.objects.Delete(r.Context(), key); err != nil {
		logger.Warn("failed to delete object", "key", key, "error", err)
	}
}

// authorizedFile loads the file from the id path parameter and enforces
// ownership. Writes the problem response itself on failure.
func (h *FileHandler) authorizedFile(w http.ResponseWriter, r *http.Request) (*models.File, bool) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return nil, false
	}

	file, err := h.store.GetFile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, models.ErrFileNotFound) {
			NotFound(w, "File not found")
			return nil, false
		}
		InternalServerError(w, "Failed to fetch file")
		return nil, false
	}

	if !claims.IsSuperuser() {
		project, err := h.store.GetProject(r.Context(), file.ProjectID)
		if err != nil {
			InternalServerError(w, "Failed to fetch file")
			return nil, false
		}
		if project.OwnerID != claims.UserID {
			Forbidden(w, "Access denied to this file")
			return nil, false
		}
	}

	return file, true
}
