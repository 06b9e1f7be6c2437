package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
)

// ============================================
// PROJECT OPERATIONS
// ============================================

func (s *GORMStore) CreateProject(ctx context.Context, project *models.Project) (string, error) {
	project.CreatedAt = time.Now()
	return createWithID(s.db, ctx, project, func(p *models.Project, id string) { p.ID = id }, project.ID, models.ErrDuplicateProject)
}

// GetProject returns the project row regardless of soft-delete state.
// Callers that must not see deleted projects check IsLive themselves.
func (s *GORMStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	return getByField[models.Project](s.db, ctx, "id", id, models.ErrProjectNotFound)
}

// GetLiveProject returns the project only when it has not been soft deleted.
func (s *GORMStore) GetLiveProject(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&project).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrProjectNotFound)
	}
	return &project, nil
}

// ListProjects returns live projects, optionally scoped to an owner.
// An empty ownerID lists every live project.
func (s *GORMStore) ListProjects(ctx context.Context, ownerID string, page Page) ([]*models.Project, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Project{}).Where("deleted_at IS NULL")
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []*models.Project
	if err := q.Scopes(paginate(page)).Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// UpdateProject persists name, description and settings changes.
func (s *GORMStore) UpdateProject(ctx context.Context, project *models.Project) error {
	var existing models.Project
	if err := s.db.WithContext(ctx).Where("id = ?", project.ID).First(&existing).Error; err != nil {
		return convertNotFoundError(err, models.ErrProjectNotFound)
	}

	return s.db.WithContext(ctx).
		Model(&existing).
		Select("Name", "Description", "Settings").
		Updates(project).Error
}

// SoftDeleteProject marks the project deleted at the given instant.
// The retention reconciler hard-deletes it once the grace period passes.
func (s *GORMStore) SoftDeleteProject(ctx context.Context, id string, now time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrProjectNotFound
	}
	return nil
}

// HardDeleteProject removes the project and everything under it.
// Rows are deleted bottom-up in one transaction so the store behaves the
// same on backends where foreign-key cascades are not enforced.
func (s *GORMStore) HardDeleteProject(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Where("id = ?", id).First(&project).Error; err != nil {
			return convertNotFoundError(err, models.ErrProjectNotFound)
		}

		if err := tx.Where("file_id IN (?)",
			tx.Model(&models.File{}).Select("id").Where("project_id = ?", id),
		).Delete(&models.Job{}).Error; err != nil {
			return err
		}

		if err := tx.Where("project_id = ?", id).Delete(&models.File{}).Error; err != nil {
			return err
		}

		if err := tx.Where("project_id = ?", id).Delete(&models.ApiKey{}).Error; err != nil {
			return err
		}

		return tx.Delete(&project).Error
	})
}

// ListExpiredProjects returns soft-deleted projects whose deleted_at is
// older than the cutoff. Used by the retention purge.
func (s *GORMStore) ListExpiredProjects(ctx context.Context, cutoff time.Time) ([]*models.Project, error) {
	var projects []*models.Project
	err := s.db.WithContext(ctx).
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// CountProjectImageFiles returns how many of the project's files are images.
// CountProjectsForOwner counts the owner's projects regardless of
// soft-delete state. Soft-deleted rows still reference the owner.
func (s *GORMStore) CountProjectsForOwner(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("owner_id = ?", ownerID).
		Count(&count).Error
	return count, err
}

func (s *GORMStore) CountProjectImageFiles(ctx context.Context, projectID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.File{}).
		Where("project_id = ? AND mime_type LIKE ?", projectID, "%image%").
		Count(&count).Error
	return count, err
}
