// Package reconciler converges stored state with desired state: it purges
// soft-deleted projects past their retention window and triggers on-demand
// variant resyncs.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/CodeArtisanRiz/media-blob-kit/internal/logger"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/metrics"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/objectstore"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/store"
)

const (
	// RetentionPeriod is how long a soft-deleted project survives before
	// the purge removes it and its objects for good.
	RetentionPeriod = 30 * 24 * time.Hour

	// defaultInterval is the purge sweep cadence.
	defaultInterval = 24 * time.Hour
)

// Reconciler runs the retention purge loop and serves resync requests.
type Reconciler struct {
	store    *store.GORMStore
	objects  objectstore.Store
	metrics  *metrics.Metrics
	interval time.Duration
	now      func() time.Time
}

// New creates a reconciler with the default sweep interval and clock.
func New(st *store.GORMStore, objects objectstore.Store, m *metrics.Metrics) *Reconciler {
	return &Reconciler{
		store:    st,
		objects:  objects,
		metrics:  m,
		interval: defaultInterval,
		now:      time.Now,
	}
}

// SetInterval overrides the sweep cadence. Tests use short values.
func (r *Reconciler) SetInterval(d time.Duration) {
	r.interval = d
}

// SetClock overrides the time source. Tests inject synthetic clocks.
func (r *Reconciler) SetClock(now func() time.Time) {
	r.now = now
}

// Run sweeps immediately and then once per interval until ctx is canceled.
func (r *Reconciler) Run(ctx context.Context) {
	logger.Info("reconciler started", "interval", r.interval.String())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if purged, err := r.PurgeExpired(ctx); err != nil {
			logger.Error("retention purge failed", "error", err)
		} else if purged > 0 {
			logger.Info("retention purge finished", "projects_purged", purged)
		}

		select {
		case <-ctx.Done():
			logger.Info("reconciler stopped")
			return
		case <-ticker.C:
		}
	}
}

// PurgeExpired hard-deletes every soft-deleted project whose grace period
// has elapsed, removing its objects first. Returns how many projects were
// purged. Object deletion is best-effort; an object-store error is logged
// and does not block the database purge, since orphaned objects are
// harmless and re-running the sweep cannot resurrect the rows.
func (r *Reconciler) PurgeExpired(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-RetentionPeriod)
	expired, err := r.store.ListExpiredProjects(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired projects: %w", err)
	}

	purged := 0
	for _, project := range expired {
		if err := r.purgeProject(ctx, project); err != nil {
			logger.Error("failed to purge project", "project_id", project.ID, "error", err)
			continue
		}
		r.metrics.ObservePurge()
		purged++
	}
	return purged, nil
}

// purgeProject deletes the project's objects and then its rows.
func (r *Reconciler) purgeProject(ctx context.Context, project *models.Project) error {
	files, err := r.store.ListProjectFiles(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	for _, file := range files {
		r.deleteObject(ctx, file.S3Key)
		for _, stored := range file.VariantsMap {
			r.deleteObject(ctx, stored)
		}
	}

	if err := r.store.HardDeleteProject(ctx, project.ID); err != nil {
		return fmt.Errorf("failed to hard delete: %w", err)
	}

	logger.Info("project purged",
		"project_id", project.ID,
		"name", project.Name,
		"files", len(files))
	return nil
}

// deleteObject removes one stored key or URL, logging failures.
func (r *Reconciler) deleteObject(ctx context.Context, stored string) {
	key := r.objects.Resolve(stored)
	if key == "" {
		return
	}
	if err := r.objects.Delete(ctx, key); err != nil {
		logger.Warn("failed to delete object during purge", "key", key, "error", err)
	}
}

// ResyncProject enqueues a project-wide variant resync against the project's
// current settings and returns the job plus how many image files it will
// cover once the fan-out runs.
func (r *Reconciler) ResyncProject(ctx context.Context, projectID string) (*models.Job, int64, error) {
	project, err := r.store.GetLiveProject(ctx, projectID)
	if err != nil {
		return nil, 0, err
	}

	job, err := r.store.EnqueueJob(ctx, "", models.JobPayload{
		Type:           string(models.KindSyncProjectVariants),
		ProjectID:      project.ID,
		VariantsConfig: project.Settings.Variants,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to enqueue project sync: %w", err)
	}

	count, err := r.store.CountProjectImageFiles(ctx, project.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count project images: %w", err)
	}

	logger.Info("project resync requested",
		"project_id", project.ID,
		"job_id", job.ID,
		"image_files", count)
	return job, count, nil
}
