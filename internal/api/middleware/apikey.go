package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/CodeArtisanRiz/media-blob-kit/internal/logger"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/store"
)

const projectContextKey contextKey = "project"

// APIKeyHeader carries the per-project upload credential.
const APIKeyHeader = "X-API-Key"

// GetProjectFromContext retrieves the API-key-authenticated project from the
// request context. Returns nil if the request did not pass through APIKeyAuth.
func GetProjectFromContext(ctx context.Context) *models.Project {
	project, ok := ctx.Value(projectContextKey).(*models.Project)
	if !ok {
		return nil
	}
	return project
}

// APIKeyAuth authenticates requests by the X-API-Key header: the key's
// sha256 digest is looked up, and the owning live project (with its parsed
// variant settings) is stored in the request context.
//
// Missing, unknown, revoked or expired keys and keys of soft-deleted
// projects all yield 401 Unauthorized.
func APIKeyAuth(st *store.GORMStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			plaintext := r.Header.Get(APIKeyHeader)
			if plaintext == "" {
				http.Error(w, "API key required", http.StatusUnauthorized)
				return
			}

			key, err := st.GetApiKeyByHash(r.Context(), store.HashApiKey(plaintext))
			if err != nil {
				if !errors.Is(err, models.ErrApiKeyNotFound) && !errors.Is(err, models.ErrApiKeyInactive) {
					logger.Error("api key lookup failed", "error", err)
				}
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			project, err := st.GetLiveProject(r.Context(), key.ProjectID)
			if err != nil {
				if !errors.Is(err, models.ErrProjectNotFound) {
					logger.Error("api key project lookup failed", "error", err)
				}
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), projectContextKey, project)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
