package models

import (
	"strings"
	"time"
)

// FileStatus represents the processing state of an uploaded file.
type FileStatus string

const (
	// FileStatusUploaded means the original is stored but not yet queued.
	FileStatusUploaded FileStatus = "uploaded"
	// FileStatusProcessing means variant derivation is queued or running.
	FileStatusProcessing FileStatus = "processing"
	// FileStatusReady means all configured variants exist in object storage.
	FileStatusReady FileStatus = "ready"
	// FileStatusError means processing failed terminally.
	FileStatusError FileStatus = "error"
)

// IsValid checks if the status is a known FileStatus.
func (s FileStatus) IsValid() bool {
	switch s {
	case FileStatusUploaded, FileStatusProcessing, FileStatusReady, FileStatusError:
		return true
	}
	return false
}

// File is one original uploaded asset plus the map of derived variants.
type File struct {
	ID          string      `gorm:"primaryKey;size:36" json:"id"`
	ProjectID   string      `gorm:"index;not null;size:36" json:"project_id"`
	S3Key       string      `gorm:"uniqueIndex;not null;size:512" json:"s3_key"`
	Filename    string      `gorm:"not null;size:255" json:"filename"`
	MimeType    string      `gorm:"size:255" json:"mime_type"`
	SizeBytes   int64       `json:"size_bytes"`
	Status      FileStatus  `gorm:"not null;default:uploaded;size:32" json:"status"`
	VariantsMap VariantsMap `gorm:"type:text" json:"variants_map"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime" json:"updated_at"`

	Jobs []Job `gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for File.
func (File) TableName() string {
	return "files"
}

// IsImage reports whether the file's mime type is in the image family.
func (f *File) IsImage() bool {
	return strings.Contains(f.MimeType, "image")
}
