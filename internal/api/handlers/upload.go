package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/CodeArtisanRiz/media-blob-kit/internal/api/middleware"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/upload"
)

// UploadHandler handles the API-key-authenticated ingest endpoints.
type UploadHandler struct {
	pipeline *upload.Pipeline
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(pipeline *upload.Pipeline) *UploadHandler {
	return &UploadHandler{pipeline: pipeline}
}

// UploadResponse is the response body for both upload endpoints.
type UploadResponse struct {
	File FileResponse `json:"file"`
	// JobID is set only for image uploads, which enqueue processing work.
	JobID string `json:"job_id,omitempty"`
}

// Image handles POST /upload/image.
// Accepts a multipart body with a "file" field, stores the original and
// enqueues variant derivation. Non-image content types are rejected.
func (h *UploadHandler) Image(w http.ResponseWriter, r *http.Request) {
	project := middleware.GetProjectFromContext(r.Context())
	if project == nil {
		Unauthorized(w, "API key required")
		return
	}

	up, err := upload.FromRequest(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	file, job, err := h.pipeline.UploadImage(r.Context(), project, up)
	if err != nil {
		if errors.Is(err, upload.ErrNotAnImage) {
			BadRequest(w, "Content type must be an image")
			return
		}
		InternalServerError(w, "Upload failed")
		return
	}

	WriteJSONOK(w, UploadResponse{
		File:  fileToResponse(file),
		JobID: job.ID,
	})
}

// File handles POST /upload/file.
// Accepts any content type; the file is ready immediately, no job runs.
func (h *UploadHandler) File(w http.ResponseWriter, r *http.Request) {
	project := middleware.GetProjectFromContext(r.Context())
	if project == nil {
		Unauthorized(w, "API key required")
		return
	}

	up, err := upload.FromRequest(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	file, err := h.pipeline.UploadFile(r.Context(), project, up)
	if err != nil {
		InternalServerError(w, "Upload failed")
		return
	}

	WriteJSONOK(w, UploadResponse{File: fileToResponse(file)})
}

// FileResponse is the API representation of a file row.
type FileResponse struct {
	ID        string            `json:"id"`
	ProjectID string            `json:"project_id"`
	Filename  string            `json:"filename"`
	MimeType  string            `json:"mime_type"`
	SizeBytes int64             `json:"size_bytes"`
	Status    string            `json:"status"`
	Variants  map[string]string `json:"variants"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// fileToResponse converts a File to a FileResponse for API output.
func fileToResponse(file *models.File) FileResponse {
	variants := file.VariantsMap
	if variants == nil {
		variants = models.VariantsMap{}
	}
	return FileResponse{
		ID:        file.ID,
		ProjectID: file.ProjectID,
		Filename:  file.Filename,
		MimeType:  file.MimeType,
		SizeBytes: file.SizeBytes,
		Status:    string(file.Status),
		Variants:  variants,
		CreatedAt: file.CreatedAt,
		UpdatedAt: file.UpdatedAt,
	}
}
