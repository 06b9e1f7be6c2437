package models

import "time"

// ApiKey authorizes upload and job-listing calls for a single project.
// Only the sha256 hex digest of the key material is stored; the plaintext
// is shown once at creation time.
type ApiKey struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	ProjectID string     `gorm:"index;not null;size:36" json:"project_id"`
	Name      string     `gorm:"size:255" json:"name"`
	KeyHash   string     `gorm:"uniqueIndex;not null;size:64" json:"-"`
	IsActive  bool       `gorm:"default:true" json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for ApiKey.
func (ApiKey) TableName() string {
	return "api_keys"
}

// IsUsable reports whether the key is active and unexpired.
func (k *ApiKey) IsUsable(now time.Time) bool {
	if !k.IsActive {
		return false
	}
	if k.ExpiresAt != nil && now.After(*k.ExpiresAt) {
		return false
	}
	return true
}
