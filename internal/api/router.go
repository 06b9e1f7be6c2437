package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CodeArtisanRiz/media-blob-kit/internal/api/auth"
	"github.com/CodeArtisanRiz/media-blob-kit/internal/api/handlers"
	apiMiddleware "github.com/CodeArtisanRiz/media-blob-kit/internal/api/middleware"
	"github.com/CodeArtisanRiz/media-blob-kit/internal/logger"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/objectstore"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/reconciler"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/store"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/upload"
)

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
//   - GET /metrics - Prometheus metrics
//   - POST /api/v1/auth/login - User authentication
//   - POST /api/v1/auth/refresh - Token refresh
//   - GET /api/v1/auth/me - Current user info
//   - POST /api/v1/upload/image - Image upload (API key)
//   - POST /api/v1/upload/file - Arbitrary file upload (API key)
//   - GET /api/v1/jobs - Job listing for the key's project (API key)
//   - /api/v1/projects/* - Project management (JWT)
//   - /api/v1/projects/{id}/keys/* - API key management (JWT)
//   - /api/v1/files/* - File listing, content redirect, deletion (JWT)
//   - GET /api/v1/admin/jobs - Cross-project job listing (JWT, admin+)
//   - DELETE /api/v1/users/{username} - User deletion (JWT, su only)
func NewRouter(st *store.GORMStore, objects objectstore.Store, jwtService *auth.JWTService, pipeline *upload.Pipeline, rec *reconciler.Reconciler) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Health routes - unauthenticated
	healthHandler := handlers.NewHealthHandler(st, objects)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	// Prometheus scrape endpoint - unauthenticated
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	authHandler := handlers.NewAuthHandler(st, jwtService)
	uploadHandler := handlers.NewUploadHandler(pipeline)
	fileHandler := handlers.NewFileHandler(st, objects)
	projectHandler := handlers.NewProjectHandler(st, objects, rec)
	apiKeyHandler := handlers.NewApiKeyHandler(st, projectHandler)
	jobHandler := handlers.NewJobHandler(st)
	userHandler := handlers.NewUserHandler(st)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes - mostly unauthenticated
		r.Route("/auth", func(r chi.Router) {
			// Public endpoints
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Authenticated endpoint
			r.Group(func(r chi.Router) {
				r.Use(apiMiddleware.JWTAuth(jwtService))
				r.Get("/me", authHandler.Me)
			})
		})

		// Project-scoped routes - authenticated by API key
		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware.APIKeyAuth(st))

			r.Post("/upload/image", uploadHandler.Image)
			r.Post("/upload/file", uploadHandler.File)
			r.Get("/jobs", jobHandler.List)
		})

		// Management routes - authenticated by JWT
		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware.JWTAuth(jwtService))

			r.Route("/projects", func(r chi.Router) {
				r.Post("/", projectHandler.Create)
				r.Get("/", projectHandler.List)
				r.Get("/{id}", projectHandler.Get)
				r.Put("/{id}", projectHandler.Update)
				r.Delete("/{id}", projectHandler.Delete)
				r.Post("/{id}/sync-variants", projectHandler.SyncVariants)

				// API keys nested under the owning project
				r.Route("/{id}/keys", func(r chi.Router) {
					r.Post("/", apiKeyHandler.Create)
					r.Get("/", apiKeyHandler.List)
					r.Patch("/{keyID}", apiKeyHandler.Update)
					r.Delete("/{keyID}", apiKeyHandler.Delete)
				})
			})

			r.Route("/files", func(r chi.Router) {
				r.Get("/", fileHandler.List)
				r.Get("/{id}", fileHandler.Get)
				r.Get("/{id}/content", fileHandler.Content)
				r.Delete("/{id}", fileHandler.Delete)
			})

			// Role authorization happens inside the handler: superusers see
			// all projects, admins their own, plain users are rejected.
			r.Get("/admin/jobs", jobHandler.AdminList)

			// User administration is superuser only.
			r.Route("/users", func(r chi.Router) {
				r.Use(apiMiddleware.RequireRole(string(models.RoleSuperuser)))
				r.Delete("/{username}", userHandler.Delete)
			})
		})
	})

	return r
}

// isHealthPath returns true if the request path is a healthcheck endpoint.
func isHealthPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/") || path == "/metrics"
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
//   - Healthcheck and metrics requests are logged at DEBUG level to reduce noise
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		}

		// Log healthcheck requests at DEBUG to avoid polluting logs in k8s
		if isHealthPath(r.URL.Path) {
			logger.Debug("API request completed", logArgs...)
		} else {
			logger.Info("API request completed", logArgs...)
		}
	})
}
