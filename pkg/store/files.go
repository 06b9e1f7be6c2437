package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
)

// ============================================
// FILE OPERATIONS
// ============================================

func (s *GORMStore) CreateFile(ctx context.Context, file *models.File) (string, error) {
	file.CreatedAt = time.Now()
	if file.VariantsMap == nil {
		file.VariantsMap = models.VariantsMap{}
	}
	return createWithID(s.db, ctx, file, func(f *models.File, id string) { f.ID = id }, file.ID, models.ErrDuplicateFile)
}

func (s *GORMStore) GetFile(ctx context.Context, id string) (*models.File, error) {
	return getByField[models.File](s.db, ctx, "id", id, models.ErrFileNotFound)
}

// ListFiles returns files, optionally scoped to a project.
// An empty projectID lists across all projects.
func (s *GORMStore) ListFiles(ctx context.Context, projectID string, page Page) ([]*models.File, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.File{})
	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var files []*models.File
	if err := q.Scopes(paginate(page)).Order("created_at DESC").Find(&files).Error; err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

// ListFilesForOwner returns files belonging to projects owned by ownerID.
func (s *GORMStore) ListFilesForOwner(ctx context.Context, ownerID string, page Page) ([]*models.File, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.File{}).
		Where("project_id IN (?)",
			s.db.Model(&models.Project{}).Select("id").Where("owner_id = ?", ownerID))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var files []*models.File
	if err := q.Scopes(paginate(page)).Order("created_at DESC").Find(&files).Error; err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

// ListProjectFiles returns every file of a project, unpaginated.
// Used by the retention purge and the sync fan-out.
func (s *GORMStore) ListProjectFiles(ctx context.Context, projectID string) ([]*models.File, error) {
	var files []*models.File
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ListProjectImageFiles returns the project's files whose mime type is in
// the image family.
func (s *GORMStore) ListProjectImageFiles(ctx context.Context, projectID string) ([]*models.File, error) {
	var files []*models.File
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND mime_type LIKE ?", projectID, "%image%").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// UpdateFileStatus transitions the file's status.
func (s *GORMStore) UpdateFileStatus(ctx context.Context, id string, status models.FileStatus) error {
	result := s.db.WithContext(ctx).
		Model(&models.File{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrFileNotFound
	}
	return nil
}

// SetFileReady marks the file ready and replaces its variants map in one
// write. Concurrent jobs for the same file race here; last writer wins.
func (s *GORMStore) SetFileReady(ctx context.Context, id string, variants models.VariantsMap) error {
	result := s.db.WithContext(ctx).
		Model(&models.File{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       models.FileStatusReady,
			"variants_map": variants,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrFileNotFound
	}
	return nil
}

// DeleteFile removes the file row and its jobs.
func (s *GORMStore) DeleteFile(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", id).Delete(&models.Job{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.File{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrFileNotFound
		}
		return nil
	})
}
