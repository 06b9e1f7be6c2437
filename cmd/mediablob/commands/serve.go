package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/CodeArtisanRiz/media-blob-kit/internal/api"
	"github.com/CodeArtisanRiz/media-blob-kit/internal/logger"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/metrics"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/objectstore/s3"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/reconciler"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/store"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mediablob server",
	Long: `Start the API server, the variant worker pool and the retention
reconciler in a single process.

All configuration comes from environment variables. Required:
DATABASE_URL, JWT_SECRET, S3_BUCKET_NAME.

Examples:
  # Serve with a local SQLite database and MinIO
  DATABASE_URL=mediablob.db \
  JWT_SECRET=change-me-to-something-32-chars-long \
  S3_ENDPOINT=http://localhost:9000 \
  S3_BUCKET_NAME=media \
  mediablob serve

  # Scale the worker pool
  WORKER_CONCURRENCY=8 mediablob serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Configuration loaded",
		"db", cfg.Database.Type,
		"bucket", cfg.S3.Bucket,
		"worker_concurrency", cfg.WorkerConcurrency,
	)

	st, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer func() { _ = st.Close() }()

	objects, err := s3.New(ctx, &cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize object store: %w", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure bucket: %w", err)
	}
	logger.Info("Object store ready", "bucket", cfg.S3.Bucket)

	// Bootstrap the superuser account when credentials are configured.
	if cfg.SUUsername != "" && cfg.SUPassword != "" {
		created, err := st.EnsureSuperuser(ctx, cfg.SUUsername, cfg.SUPassword)
		if err != nil {
			return fmt.Errorf("failed to ensure superuser: %w", err)
		}
		if created {
			logger.Info("Superuser created", "username", cfg.SUUsername)
		}
	}

	// Jobs stranded in processing by an unclean shutdown become claimable
	// again. Must happen before the first claimer starts.
	recovered, err := st.RecoverStuckJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to recover stuck jobs: %w", err)
	}
	if recovered > 0 {
		logger.Info("Recovered stuck jobs", "count", recovered)
	}

	m := metrics.New(nil)

	pool := worker.New(st, objects, m, cfg.WorkerConcurrency)
	go pool.Run(ctx)
	logger.Info("Worker pool started", "concurrency", cfg.WorkerConcurrency)

	rec := reconciler.New(st, objects, m)
	go rec.Run(ctx)
	logger.Info("Reconciler started", "retention", reconciler.RetentionPeriod.String())

	apiServer, err := api.NewServer(cfg, st, objects, rec, m)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}
