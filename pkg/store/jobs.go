package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
)

// ============================================
// JOB QUEUE OPERATIONS
// ============================================

// EnqueueJob inserts a pending job with the given payload. An empty fileID
// enqueues a project-scope job with no file binding.
func (s *GORMStore) EnqueueJob(ctx context.Context, fileID string, payload models.JobPayload) (*models.Job, error) {
	job := &models.Job{
		Status:  models.JobStatusPending,
		Payload: payload,
	}
	if fileID != "" {
		job.FileID = &fileID
	}
	if _, err := createWithID(s.db, ctx, job, func(j *models.Job, id string) { j.ID = id }, job.ID, models.ErrJobNotFound); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}
	return job, nil
}

// ClaimNextJob atomically transitions the oldest pending job to processing
// and returns it. Under concurrent claimers at most one caller obtains any
// given job: on PostgreSQL the select takes a row lock with SKIP LOCKED, on
// SQLite the transaction itself serializes writers.
//
// Returns models.ErrNoPendingJobs when the queue is empty.
func (s *GORMStore) ClaimNextJob(ctx context.Context) (*models.Job, error) {
	var claimed models.Job

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("status = ?", models.JobStatusPending).
			Order("created_at ASC").
			Limit(1)
		if s.supportsSkipLocked() {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := q.First(&claimed).Error; err != nil {
			return convertNotFoundError(err, models.ErrNoPendingJobs)
		}

		now := time.Now()
		result := tx.Model(&models.Job{}).
			Where("id = ? AND status = ?", claimed.ID, models.JobStatusPending).
			Updates(map[string]any{
				"status":     models.JobStatusProcessing,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Another claimer won the row between select and update.
			return models.ErrNoPendingJobs
		}

		claimed.Status = models.JobStatusProcessing
		claimed.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &claimed, nil
}

// CompleteJob marks a claimed job completed. Ownership was asserted at
// claim time, so no compare-and-set on the prior status is needed.
func (s *GORMStore) CompleteJob(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     models.JobStatusCompleted,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrJobNotFound
	}
	return nil
}

// FailJob marks the job failed and rewrites its payload to the failure
// envelope, preserving the previous payload under original_payload. This is
// the only destructive payload mutation in the system.
func (s *GORMStore) FailJob(ctx context.Context, job *models.Job, errMsg string) error {
	envelope, err := job.Payload.FailureEnvelope(errMsg)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"status":     models.JobStatusFailed,
			"payload":    envelope,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrJobNotFound
	}
	return nil
}

// RecoverStuckJobs flips every processing job back to pending and returns
// how many rows changed. Run once at startup, before any claimer starts.
// Safe only under the single-process deployment this service assumes; a
// multi-process deployment needs leases instead.
func (s *GORMStore) RecoverStuckJobs(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("status = ?", models.JobStatusProcessing).
		Updates(map[string]any{
			"status":     models.JobStatusPending,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (s *GORMStore) GetJob(ctx context.Context, id string) (*models.Job, error) {
	return getByField[models.Job](s.db, ctx, "id", id, models.ErrJobNotFound)
}

// ListJobs returns jobs across all projects, newest first.
func (s *GORMStore) ListJobs(ctx context.Context, page Page) ([]*models.Job, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Job{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []*models.Job
	if err := q.Scopes(paginate(page)).Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// ListJobsForProject returns jobs whose file belongs to the project,
// optionally filtered by status.
func (s *GORMStore) ListJobsForProject(ctx context.Context, projectID string, status models.JobStatus, page Page) ([]*models.Job, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Job{}).
		Where("file_id IN (?)",
			s.db.Model(&models.File{}).Select("id").Where("project_id = ?", projectID))
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []*models.Job
	if err := q.Scopes(paginate(page)).Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// ListJobsForOwner returns jobs across every project owned by ownerID.
func (s *GORMStore) ListJobsForOwner(ctx context.Context, ownerID string, page Page) ([]*models.Job, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Job{}).
		Where("file_id IN (?)",
			s.db.Model(&models.File{}).Select("id").Where("project_id IN (?)",
				s.db.Model(&models.Project{}).Select("id").Where("owner_id = ?", ownerID)))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []*models.Job
	if err := q.Scopes(paginate(page)).Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// CountPendingJobs returns the number of claimable jobs. Exposed for
// metrics and tests.
func (s *GORMStore) CountPendingJobs(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("status = ?", models.JobStatusPending).
		Count(&count).Error
	return count, err
}
