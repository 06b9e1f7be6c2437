package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
)

func TestJobQueueLifecycle(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	project := createTestProject(t, store, "queued")
	file := createTestFile(t, store, project.ID, "queued-1/images/original/f1.png", "image/png")

	t.Run("claim on empty queue", func(t *testing.T) {
		_, err := store.ClaimNextJob(ctx)
		if !errors.Is(err, models.ErrNoPendingJobs) {
			t.Errorf("expected ErrNoPendingJobs, got %v", err)
		}
	})

	job, err := store.EnqueueJob(ctx, file.ID, models.JobPayload{
		Variants: map[string]models.VariantConfig{"thumb": {Width: 64}},
	})
	if err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}
	if job.Status != models.JobStatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}

	t.Run("claim transitions to processing", func(t *testing.T) {
		claimed, err := store.ClaimNextJob(ctx)
		if err != nil {
			t.Fatalf("failed to claim: %v", err)
		}
		if claimed.ID != job.ID {
			t.Errorf("claimed wrong job: %q", claimed.ID)
		}
		if claimed.Status != models.JobStatusProcessing {
			t.Errorf("expected processing, got %s", claimed.Status)
		}

		// The queue is now empty again.
		if _, err := store.ClaimNextJob(ctx); !errors.Is(err, models.ErrNoPendingJobs) {
			t.Errorf("expected ErrNoPendingJobs after claim, got %v", err)
		}
	})

	t.Run("complete is terminal", func(t *testing.T) {
		if err := store.CompleteJob(ctx, job.ID); err != nil {
			t.Fatalf("failed to complete: %v", err)
		}
		got, _ := store.GetJob(ctx, job.ID)
		if got.Status != models.JobStatusCompleted {
			t.Errorf("expected completed, got %s", got.Status)
		}
	})
}

func TestJobClaimOrder(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	project := createTestProject(t, store, "ordered")
	file := createTestFile(t, store, project.ID, "ordered-1/images/original/f1.png", "image/png")

	// created_at has second precision on some backends; force distinct
	// timestamps so the FIFO assertion is deterministic.
	base := time.Now().Add(-time.Minute)
	var ids []string
	for i := 0; i < 3; i++ {
		job, err := store.EnqueueJob(ctx, file.ID, models.JobPayload{Variants: map[string]models.VariantConfig{}})
		if err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		created := base.Add(time.Duration(i) * time.Second)
		if err := store.DB().Model(&models.Job{}).Where("id = ?", job.ID).Update("created_at", created).Error; err != nil {
			t.Fatalf("failed to backdate job: %v", err)
		}
		ids = append(ids, job.ID)
	}

	for i := 0; i < 3; i++ {
		claimed, err := store.ClaimNextJob(ctx)
		if err != nil {
			t.Fatalf("claim %d failed: %v", i, err)
		}
		if claimed.ID != ids[i] {
			t.Errorf("claim %d: expected %q, got %q", i, ids[i], claimed.ID)
		}
	}
}

func TestConcurrentClaimExactlyOnce(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	project := createTestProject(t, store, "racy")
	file := createTestFile(t, store, project.ID, "racy-1/images/original/f1.png", "image/png")

	const pending = 3
	const claimers = 8
	for i := 0; i < pending; i++ {
		if _, err := store.EnqueueJob(ctx, file.ID, models.JobPayload{Variants: map[string]models.VariantConfig{}}); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
	}

	var wg sync.WaitGroup
	claimedIDs := make(chan string, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := store.ClaimNextJob(ctx)
			if err != nil {
				if !errors.Is(err, models.ErrNoPendingJobs) {
					t.Errorf("unexpected claim error: %v", err)
				}
				return
			}
			claimedIDs <- job.ID
		}()
	}
	wg.Wait()
	close(claimedIDs)

	seen := make(map[string]bool)
	for id := range claimedIDs {
		if seen[id] {
			t.Errorf("job %q claimed twice", id)
		}
		seen[id] = true
	}
	if len(seen) != pending {
		t.Errorf("expected exactly %d claims, got %d", pending, len(seen))
	}

	left, err := store.CountPendingJobs(ctx)
	if err != nil {
		t.Fatalf("failed to count pending: %v", err)
	}
	if left != 0 {
		t.Errorf("expected empty queue, %d pending remain", left)
	}
}

func TestFailJobRewritesPayload(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	project := createTestProject(t, store, "failing")
	file := createTestFile(t, store, project.ID, "failing-1/images/original/f1.png", "image/png")

	job, err := store.EnqueueJob(ctx, file.ID, models.JobPayload{
		Variants: map[string]models.VariantConfig{"thumb": {Width: 64, Fit: "cover"}},
	})
	if err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	claimed, err := store.ClaimNextJob(ctx)
	if err != nil {
		t.Fatalf("failed to claim: %v", err)
	}

	if err := store.FailJob(ctx, claimed, "decode: image: unknown format"); err != nil {
		t.Fatalf("failed to fail job: %v", err)
	}

	got, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("failed to get job: %v", err)
	}
	if got.Status != models.JobStatusFailed {
		t.Errorf("expected failed, got %s", got.Status)
	}
	if got.Payload.Error != "decode: image: unknown format" {
		t.Errorf("error not recorded: %q", got.Payload.Error)
	}

	var original models.JobPayload
	if err := json.Unmarshal(got.Payload.OriginalPayload, &original); err != nil {
		t.Fatalf("original_payload not JSON: %v", err)
	}
	if original.Variants["thumb"].Width != 64 {
		t.Errorf("original payload lost: %+v", original)
	}
}

func TestRecoverStuckJobs(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	project := createTestProject(t, store, "crashed")
	file := createTestFile(t, store, project.ID, "crashed-1/images/original/f1.png", "image/png")

	job, err := store.EnqueueJob(ctx, file.ID, models.JobPayload{Variants: map[string]models.VariantConfig{}})
	if err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}
	if _, err := store.ClaimNextJob(ctx); err != nil {
		t.Fatalf("failed to claim: %v", err)
	}

	// Simulated restart: the claimed job is still marked processing.
	recovered, err := store.RecoverStuckJobs(ctx)
	if err != nil {
		t.Fatalf("recovery failed: %v", err)
	}
	if recovered != 1 {
		t.Errorf("expected 1 recovered job, got %d", recovered)
	}

	claimed, err := store.ClaimNextJob(ctx)
	if err != nil {
		t.Fatalf("failed to reclaim: %v", err)
	}
	if claimed.ID != job.ID {
		t.Errorf("expected recovered job %q, got %q", job.ID, claimed.ID)
	}

	// Terminal jobs are untouched by recovery.
	if err := store.CompleteJob(ctx, job.ID); err != nil {
		t.Fatalf("failed to complete: %v", err)
	}
	recovered, err = store.RecoverStuckJobs(ctx)
	if err != nil {
		t.Fatalf("second recovery failed: %v", err)
	}
	if recovered != 0 {
		t.Errorf("expected no recovered jobs, got %d", recovered)
	}
}
