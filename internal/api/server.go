// Package api provides the HTTP control surface for the media service.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/CodeArtisanRiz/media-blob-kit/internal/api/auth"
	"github.com/CodeArtisanRiz/media-blob-kit/internal/logger"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/config"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/metrics"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/objectstore"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/reconciler"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/store"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/upload"
)

// Server provides the HTTP server for the REST API.
//
// The server exposes health probes, the Prometheus scrape endpoint, the
// API-key upload surface and the JWT management surface. It supports
// graceful shutdown with a bounded timeout.
type Server struct {
	server       *http.Server
	jwtService   *auth.JWTService
	addr         string
	shutdownOnce sync.Once
}

// NewServer creates a new API HTTP server.
//
// The server is created in a stopped state. Call Start() to begin serving
// requests. The JWT service is created internally; cfg.JWTSecret must be at
// least 32 characters.
func NewServer(cfg *config.Config, st *store.GORMStore, objects objectstore.Store, rec *reconciler.Reconciler, m *metrics.Metrics) (*Server, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 characters; set via the JWT_SECRET env var")
	}

	jwtService, err := auth.NewJWTService(auth.JWTConfig{Secret: cfg.JWTSecret})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	pipeline := upload.New(st, objects, m)
	router := NewRouter(st, objects, jwtService, pipeline, rec)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		server:     server,
		jwtService: jwtService,
		addr:       cfg.HTTPAddr,
	}, nil
}

// JWTService returns the token service the server authenticates with.
// Exposed for bootstrap tooling and tests.
func (s *Server) JWTService() *auth.JWTService {
	return s.jwtService
}

// Start starts the API HTTP server and blocks until the context is cancelled
// or an error occurs.
//
// When the context is cancelled, Start initiates graceful shutdown and
// returns its result.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
				// Context was cancelled, error is not needed
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		// Don't use the cancelled ctx as it would cause immediate shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown of the API server.
//
// Stop is safe to call multiple times and safe to call concurrently with
// Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("API server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", "error", err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}
