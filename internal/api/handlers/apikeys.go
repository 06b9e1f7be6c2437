package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/store"
)

// ApiKeyHandler handles per-project API key management. All routes are
// nested under /projects/{id}/keys and inherit the project ownership check.
type ApiKeyHandler struct {
	store    *store.GORMStore
	projects *ProjectHandler
}

// NewApiKeyHandler creates a new ApiKeyHandler.
func NewApiKeyHandler(s *store.GORMStore, projects *ProjectHandler) *ApiKeyHandler {
	return &ApiKeyHandler{
		store:    s,
		projects: projects,
	}
}

// CreateApiKeyRequest is the request body for POST /projects/{id}/keys.
type CreateApiKeyRequest struct {
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// UpdateApiKeyRequest is the request body for PATCH /projects/{id}/keys/{keyID}.
type UpdateApiKeyRequest struct {
	IsActive bool `json:"is_active"`
}

// ApiKeyResponse is the API representation of a key.
// Key holds the plaintext and is set only in the creation response.
type ApiKeyResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	Key       string     `json:"key,omitempty"`
}

func apiKeyToResponse(key *models.ApiKey) ApiKeyResponse {
	return ApiKeyResponse{
		ID:        key.ID,
		Name:      key.Name,
		IsActive:  key.IsActive,
		ExpiresAt: key.ExpiresAt,
		CreatedAt: key.CreatedAt,
	}
}

// Create handles POST /projects/{id}/keys.
// The plaintext key appears once, in this response, and is never stored.
func (h *ApiKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	project, ok := h.projects.authorizedProject(w, r)
	if !ok {
		return
	}

	var req CreateApiKeyRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		BadRequest(w, "Key name is required")
		return
	}

	key, plaintext, err := h.store.CreateApiKey(r.Context(), project.ID, req.Name, req.ExpiresAt)
	if err != nil {
		InternalServerError(w, "Failed to create API key")
		return
	}

	resp := apiKeyToResponse(key)
	resp.Key = plaintext
	WriteJSONCreated(w, resp)
}

// List handles GET /projects/{id}/keys.
func (h *ApiKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	project, ok := h.projects.authorizedProject(w, r)
	if !ok {
		return
	}

	keys, err := h.store.ListProjectApiKeys(r.Context(), project.ID)
	if err != nil {
		InternalServerError(w, "Failed to list API keys")
		return
	}

	data := make([]ApiKeyResponse, 0, len(keys))
	for _, key := range keys {
		data = append(data, apiKeyToResponse(key))
	}
	WriteJSONOK(w, data)
}

// Update handles PATCH /projects/{id}/keys/{keyID}.
// Toggles the key's active flag.
func (h *ApiKeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	key, ok := h.authorizedKey(w, r)
	if !ok {
		return
	}

	var req UpdateApiKeyRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := h.store.SetApiKeyActive(r.Context(), key.ID, req.IsActive); err != nil {
		InternalServerError(w, "Failed to update API key")
		return
	}

	key.IsActive = req.IsActive
	WriteJSONOK(w, apiKeyToResponse(key))
}

// Delete handles DELETE /projects/{id}/keys/{keyID}.
func (h *ApiKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key, ok := h.authorizedKey(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteApiKey(r.Context(), key.ID); err != nil {
		InternalServerError(w, "Failed to delete API key")
		return
	}

	WriteNoContent(w)
}

// authorizedKey enforces project ownership and that the key belongs to the
// project in the path. Writes the problem response itself on failure.
func (h *ApiKeyHandler) authorizedKey(w http.ResponseWriter, r *http.Request) (*models.ApiKey, bool) {
	project, ok := h.projects.authorizedProject(w, r)
	if !ok {
		return nil, false
	}

	keys, err := h.store.ListProjectApiKeys(r.Context(), project.ID)
	if err != nil {
		InternalServerError(w, "Failed to fetch API key")
		return nil, false
	}

	keyID := chi.URLParam(r, "keyID")
	for _, key := range keys {
		if key.ID == keyID {
			return key, true
		}
	}

	NotFound(w, "API key not found")
	return nil, false
}
