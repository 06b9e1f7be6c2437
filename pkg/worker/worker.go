// Package worker runs the background job pool: it claims jobs from the
// durable queue, derives image variants and fans out project-wide resyncs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/CodeArtisanRiz/media-blob-kit/internal/logger"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/imaging"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/metrics"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/objectstore"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/store"
)

// defaultPollInterval is how long the pool sleeps when the queue is empty.
const defaultPollInterval = 5 * time.Second

// Worker claims and executes jobs with bounded concurrency.
type Worker struct {
	store        *store.GORMStore
	objects      objectstore.Store
	metrics      *metrics.Metrics
	concurrency  int
	pollInterval time.Duration

	wg sync.WaitGroup
}

// New creates a worker pool. concurrency values below 1 are clamped to 1.
func New(st *store.GORMStore, objects objectstore.Store, m *metrics.Metrics, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		store:        st,
		objects:      objects,
		metrics:      m,
		concurrency:  concurrency,
		pollInterval: defaultPollInterval,
	}
}

// SetPollInterval overrides the empty-queue sleep. Tests use short values.
func (w *Worker) SetPollInterval(d time.Duration) {
	w.pollInterval = d
}

// Run claims jobs until ctx is canceled, then drains: no new claims are made
// and every in-flight job runs to completion before Run returns.
func (w *Worker) Run(ctx context.Context) {
	logger.Info("worker pool started", "concurrency", w.concurrency)

	sem := make(chan struct{}, w.concurrency)
	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			logger.Info("worker pool drained")
			return
		case sem <- struct{}{}:
		}

		job, err := w.store.ClaimNextJob(ctx)
		if err != nil {
			<-sem
			if !errors.Is(err, models.ErrNoPendingJobs) && ctx.Err() == nil {
				logger.Error("failed to claim job", "error", err)
			}
			select {
			case <-ctx.Done():
			case <-time.After(w.pollInterval):
			}
			continue
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-sem }()
			// Detach from ctx so an in-flight job survives shutdown.
			w.Process(context.WithoutCancel(ctx), job)
		}()
	}
}

// ProcessNext claims and executes a single job synchronously. It reports
// whether a job was available. Used by tests and one-shot drains.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob(ctx)
	if err != nil {
		if errors.Is(err, models.ErrNoPendingJobs) {
			return false, nil
		}
		return false, err
	}
	w.Process(ctx, job)
	return true, nil
}

// Process executes one claimed job and writes its terminal state. Failures
// never propagate; they are recorded in the job's failure envelope.
func (w *Worker) Process(ctx context.Context, job *models.Job) {
	start := time.Now()
	kind := job.Payload.Kind()
	w.metrics.ObserveClaim(string(kind))

	var err error
	switch kind {
	case models.KindProcessImage, models.KindSyncFileVariants:
		err = w.processFile(ctx, job)
	case models.KindSyncProjectVariants:
		err = w.fanOutProjectSync(ctx, job)
	default:
		err = fmt.Errorf("unrecognized job payload")
	}

	if err != nil {
		logger.Error("job failed",
			"job_id", job.ID,
			"kind", kind,
			"error", err,
			"duration_ms", logger.Duration(start))
		if failErr := w.store.FailJob(ctx, job, err.Error()); failErr != nil {
			logger.Error("failed to record job failure", "job_id", job.ID, "error", failErr)
		}
		w.metrics.ObserveCompletion(string(kind), true)
		return
	}

	if err := w.store.CompleteJob(ctx, job.ID); err != nil {
		logger.Error("failed to record job completion", "job_id", job.ID, "error", err)
	}
	w.metrics.ObserveCompletion(string(kind), false)
	logger.Info("job completed",
		"job_id", job.ID,
		"kind", kind,
		"duration_ms", logger.Duration(start))
}

// processFile derives every variant in the payload from the file's original.
// All variants must succeed; the first failure aborts the job and the file
// row keeps its processing status.
func (w *Worker) processFile(ctx context.Context, job *models.Job) error {
	file, err := w.store.GetFile(ctx, job.FileRef())
	if err != nil {
		return fmt.Errorf("failed to load file: %w", err)
	}
	project, err := w.store.GetProject(ctx, file.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}

	variants := job.Payload.VariantSet()
	if len(variants) == 0 {
		// Nothing configured; the original alone makes the file ready.
		return w.store.SetFileReady(ctx, file.ID, models.VariantsMap{})
	}

	original, err := w.objects.Get(ctx, w.objects.Resolve(file.S3Key))
	if err != nil {
		return fmt.Errorf("failed to fetch original: %w", err)
	}

	prefix := objectstore.ProjectPrefix(project.Name, project.ID)
	produced := models.VariantsMap{}
	for name, cfg := range variants {
		out, mime, err := imaging.Transform(original, cfg)
		if err != nil {
			return fmt.Errorf("variant %q: %w", name, err)
		}

		key := objectstore.VariantKey(prefix, name, file.ID, objectstore.ExtensionForMIME(mime))
		if err := w.objects.Put(ctx, key, out, mime); err != nil {
			return fmt.Errorf("variant %q: failed to store: %w", name, err)
		}
		produced[name] = key
	}

	if err := w.store.SetFileReady(ctx, file.ID, produced); err != nil {
		return fmt.Errorf("failed to mark file ready: %w", err)
	}
	return nil
}

// fanOutProjectSync enqueues one sync_file_variants job per image file in the
// payload's project, each carrying a snapshot of the variant configuration.
func (w *Worker) fanOutProjectSync(ctx context.Context, job *models.Job) error {
	if job.Payload.ProjectID == "" {
		return fmt.Errorf("sync job carries no project id")
	}

	project, err := w.store.GetProject(ctx, job.Payload.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}

	variants := job.Payload.VariantSet()
	if variants == nil {
		variants = project.Settings.Variants
	}

	files, err := w.store.ListProjectImageFiles(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("failed to list project images: %w", err)
	}

	for _, file := range files {
		_, err := w.store.EnqueueJob(ctx, file.ID, models.JobPayload{
			Type:           string(models.KindSyncFileVariants),
			VariantsConfig: variants,
		})
		if err != nil {
			return fmt.Errorf("failed to enqueue sync for file %s: %w", file.ID, err)
		}
	}

	logger.Info("project sync fanned out",
		"project_id", project.ID,
		"files", len(files))
	return nil
}
