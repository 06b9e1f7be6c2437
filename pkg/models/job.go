package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JobStatus represents the lifecycle state of a queued job.
// Transitions are monotonic: pending -> processing -> completed | failed.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsValid checks if the status is a known JobStatus.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobKind identifies the work a job payload describes.
type JobKind string

const (
	// KindProcessImage derives the variant set for a freshly uploaded image.
	// Legacy payload shape: {"variants": {...}} with no type tag.
	KindProcessImage JobKind = "process_image"
	// KindSyncFileVariants reprocesses one existing file against a new config.
	KindSyncFileVariants JobKind = "sync_file_variants"
	// KindSyncProjectVariants fans out sync_file_variants jobs over a project.
	KindSyncProjectVariants JobKind = "sync_project_variants"
	// KindUnknown is returned for payloads no dispatcher arm recognizes.
	KindUnknown JobKind = "unknown"
)

// JobPayload is the tagged union carried in a job row.
//
// Three live shapes plus the failure envelope:
//
//	{"variants": {...}}                                  process image (legacy, untagged)
//	{"type": "sync_file_variants", "variants_config": {...}}
//	{"type": "sync_project_variants", "project_id": "..."}
//	{"error": "...", "original_payload": {...}}          terminal failure rewrite
//
// Dispatch is by the explicit type tag when present, otherwise by sniffing
// the variants key. The sniff keeps pre-tag rows claimable across upgrades.
type JobPayload struct {
	Type            string                   `json:"type,omitempty"`
	Variants        map[string]VariantConfig `json:"variants,omitempty"`
	VariantsConfig  map[string]VariantConfig `json:"variants_config,omitempty"`
	ProjectID       string                   `json:"project_id,omitempty"`
	Error           string                   `json:"error,omitempty"`
	OriginalPayload json.RawMessage          `json:"original_payload,omitempty"`
}

// Kind resolves the dispatch arm for this payload.
func (p *JobPayload) Kind() JobKind {
	switch p.Type {
	case string(KindSyncFileVariants):
		return KindSyncFileVariants
	case string(KindSyncProjectVariants):
		return KindSyncProjectVariants
	}
	if p.Variants != nil {
		return KindProcessImage
	}
	return KindUnknown
}

// VariantSet returns the variant configuration the payload carries,
// regardless of which shape it uses.
func (p *JobPayload) VariantSet() map[string]VariantConfig {
	if p.VariantsConfig != nil {
		return p.VariantsConfig
	}
	return p.Variants
}

// FailureEnvelope returns the payload rewritten as a terminal failure record,
// preserving the previous payload under original_payload.
func (p *JobPayload) FailureEnvelope(errMsg string) (JobPayload, error) {
	original, err := json.Marshal(p)
	if err != nil {
		return JobPayload{}, fmt.Errorf("failed to snapshot payload: %w", err)
	}
	return JobPayload{
		Error:           errMsg,
		OriginalPayload: original,
	}, nil
}

// Value implements driver.Valuer, persisting the payload as JSON.
func (p JobPayload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner.
func (p *JobPayload) Scan(value any) error {
	if value == nil {
		*p = JobPayload{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			*p = JobPayload{}
			return nil
		}
		return json.Unmarshal(v, p)
	case string:
		if v == "" {
			*p = JobPayload{}
			return nil
		}
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("cannot scan %T into JobPayload", value)
	}
}

// Job is one unit of asynchronous work. FileID is NULL for project-scope
// jobs (sync_project_variants), which carry their target in the payload.
type Job struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	FileID    *string    `gorm:"index;size:36" json:"file_id,omitempty"`
	Status    JobStatus  `gorm:"not null;default:pending;index;size:32" json:"status"`
	Payload   JobPayload `gorm:"type:text" json:"payload"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Job.
func (Job) TableName() string {
	return "jobs"
}

// FileRef returns the bound file ID, or "" for project-scope jobs.
func (j *Job) FileRef() string {
	if j.FileID == nil {
		return ""
	}
	return *j.FileID
}
