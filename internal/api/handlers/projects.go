package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/CodeArtisanRiz/media-blob-kit/internal/api/middleware"
	"github.com/CodeArtisanRiz/media-blob-kit/internal/logger"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/objectstore"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/reconciler"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/store"
)

// ProjectHandler handles the JWT-authenticated project endpoints.
type ProjectHandler struct {
	store      *store.GORMStore
	objects    objectstore.Store
	reconciler *reconciler.Reconciler
	validate   *validator.Validate
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(s *store.GORMStore, objects objectstore.Store, rec *reconciler.Reconciler) *ProjectHandler {
	return &ProjectHandler{
		store:      s,
		objects:    objects,
		reconciler: rec,
		validate:   validator.New(),
	}
}

// ProjectRequest is the request body for create and update.
type ProjectRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Settings    models.ProjectSettings `json:"settings"`
}

// ProjectResponse is the API representation of a project.
type ProjectResponse struct {
	ID          string                 `json:"id"`
	OwnerID     string                 `json:"owner_id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Settings    models.ProjectSettings `json:"settings"`
	CreatedAt   time.Time              `json:"created_at"`
	DeletedAt   *time.Time             `json:"deleted_at,omitempty"`
}

func projectToResponse(p *models.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Name:        p.Name,
		Description: p.Description,
		Settings:    p.Settings,
		CreatedAt:   p.CreatedAt,
		DeletedAt:   p.DeletedAt,
	}
}

// Create handles POST /projects.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return
	}

	var req ProjectRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		BadRequest(w, "Project name is required")
		return
	}
	if !h.validSettings(w, req.Settings) {
		return
	}

	project := &models.Project{
		OwnerID:     claims.UserID,
		Name:        req.Name,
		Description: req.Description,
		Settings:    req.Settings,
	}
	if _, err := h.store.CreateProject(r.Context(), project); err != nil {
		if errors.Is(err, models.ErrDuplicateProject) {
			Conflict(w, "Project already exists")
			return
		}
		InternalServerError(w, "Failed to create project")
		return
	}

	WriteJSONCreated(w, projectToResponse(project))
}

// List handles GET /projects.
// Superusers see every live project; everyone else their own.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return
	}

	page := parsePage(r)
	ownerID := claims.UserID
	if claims.IsSuperuser() {
		ownerID = ""
	}

	projects, total, err := h.store.ListProjects(r.Context(), ownerID, page)
	if err != nil {
		InternalServerError(w, "Failed to list projects")
		return
	}

	data := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		data = append(data, projectToResponse(p))
	}
	WriteJSONOK(w, paginatedResponse(data, total, page))
}

// Get handles GET /projects/{id}.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, ok := h.authorizedProject(w, r)
	if !ok {
		return
	}
	WriteJSONOK(w, projectToResponse(project))
}

// Update handles PUT /projects/{id}.
// Name, description and variant settings are replaced; a settings change
// does not touch existing files until a sync is requested.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	project, ok := h.authorizedProject(w, r)
	if !ok {
		return
	}

	var req ProjectRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		BadRequest(w, "Project name is required")
		return
	}
	if !h.validSettings(w, req.Settings) {
		return
	}

	project.Name = req.Name
	project.Description = req.Description
	project.Settings = req.Settings
	if err := h.store.UpdateProject(r.Context(), project); err != nil {
		InternalServerError(w, "Failed to update project")
		return
	}

	WriteJSONOK(w, projectToResponse(project))
}

// Delete handles DELETE /projects/{id}?permanent=true|false.
// Default is a soft delete; the retention purge removes the project after
// the grace period. permanent=true cascades immediately, objects included.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	project, ok := h.authorizedProject(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("permanent") == "true" {
		files, err := h.store.ListProjectFiles(r.Context(), project.ID)
		if err != nil {
			InternalServerError(w, "Failed to delete project")
			return
		}
		for _, file := range files {
			h.deleteObject(r, file.S3Key)
			for _, stored := range file.VariantsMap {
				h.deleteObject(r, stored)
			}
		}
		if err := h.store.HardDeleteProject(r.Context(), project.ID); err != nil {
			InternalServerError(w, "Failed to delete project")
			return
		}
		WriteNoContent(w)
		return
	}

	if err := h.store.SoftDeleteProject(r.Context(), project.ID, time.Now()); err != nil {
		if errors.Is(err, models.ErrProjectNotFound) {
			NotFound(w, "Project not found")
			return
		}
		InternalServerError(w, "Failed to delete project")
		return
	}
	WriteNoContent(w)
}

// SyncVariantsResponse is the response body for POST /projects/{id}/sync-variants.
type SyncVariantsResponse struct {
	JobID string `json:"job_id"`
	// FileCount is how many image files the fan-out will cover.
	FileCount int64 `json:"file_count"`
}

// SyncVariants handles POST /projects/{id}/sync-variants.
// Enqueues one project-wide resync job and returns 202 with the number of
// image files it will cover.
func (h *ProjectHandler) SyncVariants(w http.ResponseWriter, r *http.Request) {
	project, ok := h.authorizedProject(w, r)
	if !ok {
		return
	}

	job, count, err := h.reconciler.ResyncProject(r.Context(), project.ID)
	if err != nil {
		if errors.Is(err, models.ErrProjectNotFound) {
			NotFound(w, "Project not found")
			return
		}
		InternalServerError(w, "Failed to enqueue sync")
		return
	}

	WriteJSON(w, http.StatusAccepted, SyncVariantsResponse{
		JobID:     job.ID,
		FileCount: count,
	})
}

// deleteObject removes one stored key or URL, logging failures.
func (h *ProjectHandler) deleteObject(r *http.Request, stored string) {
	key := h.objects.Resolve(stored)
	if key == "" {
		return
	}
	if err := h.objects.Delete(r.Context(), key); err != nil {
		logger.Warn("failed to delete object", "key", key, "error", err)
	}
}

// validSettings validates every variant config in the settings. Writes the
// problem response itself on failure.
func (h *ProjectHandler) validSettings(w http.ResponseWriter, settings models.ProjectSettings) bool {
	for name, cfg := range settings.Variants {
		if err := h.validate.Struct(cfg); err != nil {
			BadRequest(w, "Invalid variant config "+name+": "+err.Error())
			return false
		}
	}
	return true
}

// authorizedProject loads the live project from the id path parameter and
// enforces ownership. Writes the problem response itself on failure.
func (h *ProjectHandler) authorizedProject(w http.ResponseWriter, r *http.Request) (*models.Project, bool) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return nil, false
	}

	project, err := h.store.GetLiveProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, models.ErrProjectNotFound) {
			NotFound(w, "Project not found")
			return nil, false
		}
		InternalServerError(w, "Failed to fetch project")
		return nil, false
	}

	if !claims.IsSuperuser() && project.OwnerID != claims.UserID {
		Forbidden(w, "Access denied to this project")
		return nil, false
	}

	return project, true
}
