package handlers

import (
	"net/http"
	"time"

	"github.com/CodeArtisanRiz/media-blob-kit/pkg/objectstore"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/store"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	store   *store.GORMStore
	objects objectstore.Store
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(s *store.GORMStore, objects objectstore.Store) *HealthHandler {
	return &HealthHandler{
		store:   s,
		objects: objects,
	}
}

// HealthResponse is the body of both probes.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Liveness handles GET /health. Always 200 while the process serves.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	WriteJSONOK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}

// Readiness handles GET /health/ready.
// Probes the database and the object-store bucket; 503 when either fails.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"database":     "ok",
		"object_store": "ok",
	}
	healthy := true

	if sqlDB, err := h.store.DB().DB(); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else if err := sqlDB.PingContext(r.Context()); err != nil {
		checks["database"] = err.Error()
		healthy = false
	}

	if err := h.objects.HeadBucket(r.Context()); err != nil {
		checks["object_store"] = err.Error()
		healthy = false
	}

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}
	if !healthy {
		resp.Status = "unhealthy"
		WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	WriteJSONOK(w, resp)
}
