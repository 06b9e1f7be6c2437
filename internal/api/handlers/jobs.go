package handlers

import (
	"net/http"
	"time"

	"github.com/CodeArtisanRiz/media-blob-kit/internal/api/middleware"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/store"
)

// JobHandler handles job listing endpoints.
type JobHandler struct {
	store *store.GORMStore
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(s *store.GORMStore) *JobHandler {
	return &JobHandler{store: s}
}

// JobResponse is the API representation of a job row.
type JobResponse struct {
	ID        string            `json:"id"`
	FileID    string            `json:"file_id,omitempty"`
	Status    string            `json:"status"`
	Payload   models.JobPayload `json:"payload"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func jobToResponse(job *models.Job) JobResponse {
	return JobResponse{
		ID:        job.ID,
		FileID:    job.FileRef(),
		Status:    string(job.Status),
		Payload:   job.Payload,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}

// ProjectJobsResponse is one project's job listing, keyed by project name
// in the response map.
type ProjectJobsResponse struct {
	ProjectID   string        `json:"project_id"`
	Jobs        []JobResponse `json:"jobs"`
	TotalItems  int64         `json:"total_items"`
	TotalPages  int64         `json:"total_pages"`
	CurrentPage int           `json:"current_page"`
	PageSize    int           `json:"page_size"`
}

// statusFilter reads the optional ?status= query parameter.
// Unknown values yield a 400 via the bool return.
func statusFilter(w http.ResponseWriter, r *http.Request) (models.JobStatus, bool) {
	v := r.URL.Query().Get("status")
	if v == "" {
		return "", true
	}
	status := models.JobStatus(v)
	if !status.IsValid() {
		BadRequest(w, "Unknown job status "+v)
		return "", false
	}
	return status, true
}

// List handles GET /jobs under API-key auth.
// Returns the key's project jobs grouped under the project name.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	project := middleware.GetProjectFromContext(r.Context())
	if project == nil {
		Unauthorized(w, "API key required")
		return
	}

	status, ok := statusFilter(w, r)
	if !ok {
		return
	}
	page := parsePage(r)

	listing, err := h.projectJobs(r, project, status, page)
	if err != nil {
		InternalServerError(w, "Failed to list jobs")
		return
	}

	WriteJSONOK(w, map[string]ProjectJobsResponse{project.Name: listing})
}

// AdminList handles GET /admin/jobs under JWT auth.
// Superusers see every project, admins their own projects, plain users are
// rejected. Jobs are grouped by project name, each group paginated.
func (h *JobHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return
	}

	var ownerID string
	switch models.UserRole(claims.Role) {
	case models.RoleSuperuser:
		ownerID = ""
	case models.RoleAdmin:
		ownerID = claims.UserID
	default:
		Forbidden(w, "Insufficient permissions")
		return
	}

	status, ok := statusFilter(w, r)
	if !ok {
		return
	}
	page := parsePage(r)

	projects, err := h.allProjects(r, ownerID)
	if err != nil {
		InternalServerError(w, "Failed to list jobs")
		return
	}

	result := make(map[string]ProjectJobsResponse, len(projects))
	for _, project := range projects {
		listing, err := h.projectJobs(r, project, status, page)
		if err != nil {
			InternalServerError(w, "Failed to list jobs")
			return
		}
		result[project.Name] = listing
	}

	WriteJSONOK(w, result)
}

// projectJobs assembles one project's paginated job group.
func (h *JobHandler) projectJobs(r *http.Request, project *models.Project, status models.JobStatus, page store.Page) (ProjectJobsResponse, error) {
	jobs, total, err := h.store.ListJobsForProject(r.Context(), project.ID, status, page)
	if err != nil {
		return ProjectJobsResponse{}, err
	}

	data := make([]JobResponse, 0, len(jobs))
	for _, job := range jobs {
		data = append(data, jobToResponse(job))
	}

	envelope := paginatedResponse(nil, total, page)
	return ProjectJobsResponse{
		ProjectID:   project.ID,
		Jobs:        data,
		TotalItems:  envelope.TotalItems,
		TotalPages:  envelope.TotalPages,
		CurrentPage: envelope.CurrentPage,
		PageSize:    envelope.PageSize,
	}, nil
}

// allProjects walks every live project page for the owner scope.
// An empty ownerID covers all owners.
func (h *JobHandler) allProjects(r *http.Request, ownerID string) ([]*models.Project, error) {
	var all []*models.Project
	for number := 1; ; number++ {
		page := store.Page{Number: number, Size: 100}
		projects, total, err := h.store.ListProjects(r.Context(), ownerID, page)
		if err != nil {
			return nil, err
		}
		all = append(all, projects...)
		if int64(len(all)) >= total || len(projects) == 0 {
			return all, nil
		}
	}
}
