package domain

import "time"

// CheckpointStatus represents the progress state of one (job, category) sweep.
// Values include CheckpointPending, CheckpointInProgress, CheckpointCompleted,
// and CheckpointFailed.
type CheckpointStatus string

const (
	CheckpointPending    CheckpointStatus = "pending"
	CheckpointInProgress CheckpointStatus = "in_progress"
	CheckpointCompleted  CheckpointStatus = "completed"
	CheckpointFailed     CheckpointStatus = "failed"
)

// Checkpoint is the durable pagination progress for one (job, category) pair.
//
// CurrentPage is 0-indexed and counts fully processed pages, so it is also the
// next page to fetch. It only ever increases within a (job, category) pair.
// TotalPages is nil until the first page fetch reports the upstream total.
// A completed checkpoint has CurrentPage == *TotalPages. TotalItems records
// the upstream catalog size already credited to the job's counters, so a
// resumed run adds only the difference.
type Checkpoint struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	JobID           string           `gorm:"type:text;not null;uniqueIndex:idx_checkpoints_job_category" json:"job_id"`
	Category        string           `gorm:"type:text;not null;uniqueIndex:idx_checkpoints_job_category" json:"category"`
	CurrentPage     int              `gorm:"default:0" json:"current_page"`
	TotalPages      *int             `json:"total_pages,omitempty"`
	TotalItems      int              `gorm:"default:0" json:"total_items"`
	LastProcessedID string           `gorm:"type:text" json:"last_processed_id,omitempty"`
	Status          CheckpointStatus `gorm:"type:text;default:pending" json:"status"`
	ErrorMessage    string           `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TableName returns the database table name for Checkpoint.
func (Checkpoint) TableName() string {
	return "sync_checkpoints"
}

// Done reports whether every known page has been processed.
func (c *Checkpoint) Done() bool {
	return c.TotalPages != nil && c.CurrentPage >= *c.TotalPages
}

// StaleAfter reports whether a completed checkpoint is older than ttl and
// therefore eligible for a fresh sweep. A zero ttl disables staleness.
func (c *Checkpoint) StaleAfter(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 || c.Status != CheckpointCompleted {
		return false
	}
	return now.Sub(c.UpdatedAt) > ttl
}
