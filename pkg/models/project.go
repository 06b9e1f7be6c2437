package models

import (
	"fmt"
	"time"
)

// Project is the tenancy boundary. Every file, job and API key belongs to
// exactly one project.
//
// Soft delete is modeled with an explicit nullable DeletedAt column rather
// than gorm.DeletedAt: the retention reconciler needs to query deleted rows
// by age, and hard delete is an explicit separate operation.
type Project struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	OwnerID     string          `gorm:"index;not null;size:36" json:"owner_id"`
	Name        string          `gorm:"not null;size:255" json:"name"`
	Description string          `gorm:"size:1024" json:"description,omitempty"`
	Settings    ProjectSettings `gorm:"type:text" json:"settings"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   *time.Time      `gorm:"index" json:"deleted_at,omitempty"`

	Files []File `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for Project.
func (Project) TableName() string {
	return "projects"
}

// IsLive reports whether the project has not been soft deleted.
func (p *Project) IsLive() bool {
	return p.DeletedAt == nil
}

// Validate checks if the project has valid configuration.
func (p *Project) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("project name is required")
	}
	if p.OwnerID == "" {
		return fmt.Errorf("project owner is required")
	}
	return nil
}
