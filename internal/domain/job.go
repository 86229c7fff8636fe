package domain

import "time"

// JobKind represents the kind of sync invocation.
// Values include JobKindFull, JobKindIncremental, and JobKindCategory.
type JobKind string

const (
	JobKindFull        JobKind = "full"
	JobKindIncremental JobKind = "incremental"
	JobKindCategory    JobKind = "category"
)

// JobStatus represents the status of a sync job.
// Values include JobStatusPending, JobStatusRunning, JobStatusCompleted,
// JobStatusFailed, and JobStatusInterrupted.
type JobStatus string

const (
	JobStatusPending     JobStatus = "pending"
	JobStatusRunning     JobStatus = "running"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusFailed      JobStatus = "failed"
	JobStatusInterrupted JobStatus = "interrupted"
)

// Terminal reports whether the status is final. Interrupted jobs are not
// terminal: a later invocation with resume enabled picks them up again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Resumable reports whether a job in this status may be reused by a
// resume-enabled invocation.
func (s JobStatus) Resumable() bool {
	return s == JobStatusRunning || s == JobStatusInterrupted
}

// SyncJob represents one orchestrated sync invocation and its aggregate
// progress counters.
type SyncJob struct {
	ID             string     `gorm:"type:text;primaryKey" json:"id"`
	Kind           JobKind    `gorm:"type:text;not null;index" json:"kind"`
	Status         JobStatus  `gorm:"type:text;default:pending;index" json:"status"`
	TotalProducts  int        `gorm:"default:0" json:"total_products"`
	SyncedProducts int        `gorm:"default:0" json:"synced_products"`
	FailedProducts int        `gorm:"default:0" json:"failed_products"`
	LastError      string     `gorm:"type:text" json:"last_error,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName returns the database table name for SyncJob.
func (SyncJob) TableName() string {
	return "sync_jobs"
}
