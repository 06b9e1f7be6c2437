package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
)

// ============================================
// API KEY OPERATIONS
// ============================================

// HashApiKey returns the sha256 hex digest under which a key is stored.
func HashApiKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// CreateApiKey mints a new key for the project and returns the plaintext.
// The plaintext is not persisted and cannot be recovered later.
func (s *GORMStore) CreateApiKey(ctx context.Context, projectID, name string, expiresAt *time.Time) (*models.ApiKey, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("failed to generate key material: %w", err)
	}
	plaintext := "mbk_" + hex.EncodeToString(raw)

	key := &models.ApiKey{
		ProjectID: projectID,
		Name:      name,
		KeyHash:   HashApiKey(plaintext),
		IsActive:  true,
		ExpiresAt: expiresAt,
	}
	if _, err := createWithID(s.db, ctx, key, func(k *models.ApiKey, id string) { k.ID = id }, key.ID, models.ErrDuplicateApiKey); err != nil {
		return nil, "", err
	}
	return key, plaintext, nil
}

// GetApiKeyByHash looks up a usable key by its sha256 digest.
// Inactive or expired keys yield ErrApiKeyInactive.
func (s *GORMStore) GetApiKeyByHash(ctx context.Context, keyHash string) (*models.ApiKey, error) {
	key, err := getByField[models.ApiKey](s.db, ctx, "key_hash", keyHash, models.ErrApiKeyNotFound)
	if err != nil {
		return nil, err
	}
	if !key.IsUsable(time.Now()) {
		return nil, models.ErrApiKeyInactive
	}
	return key, nil
}

// ListProjectApiKeys returns all keys minted for a project.
func (s *GORMStore) ListProjectApiKeys(ctx context.Context, projectID string) ([]*models.ApiKey, error) {
	var keys []*models.ApiKey
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Find(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// SetApiKeyActive toggles a key. Deactivation revokes without deleting the
// audit trail; reactivation restores a previously revoked key.
func (s *GORMStore) SetApiKeyActive(ctx context.Context, id string, active bool) error {
	result := s.db.WithContext(ctx).
		Model(&models.ApiKey{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrApiKeyNotFound
	}
	return nil
}

// DeleteApiKey removes a key permanently.
func (s *GORMStore) DeleteApiKey(ctx context.Context, id string) error {
	return deleteByField[models.ApiKey](s.db, ctx, "id", id, models.ErrApiKeyNotFound)
}
