package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dvdzapata/EPREL/internal/domain"
	"gorm.io/gorm"
)

// JobRepository handles sync job persistence.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job record.
func (r *JobRepository) Create(ctx context.Context, job *domain.SyncJob) error {
	return storageErr("create job", r.db.WithContext(ctx).Create(job).Error)
}

// GetByID retrieves a job by its ID.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.SyncJob, error) {
	var job domain.SyncJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageErr("get job", err)
	}
	return &job, nil
}

// Latest retrieves the most recently created job, or nil when none exist.
func (r *JobRepository) Latest(ctx context.Context) (*domain.SyncJob, error) {
	var job domain.SyncJob
	err := r.db.WithContext(ctx).Order("created_at DESC").First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageErr("latest job", err)
	}
	return &job, nil
}

// LatestResumable retrieves the most recent job of the given kind still in a
// resumable state (running or interrupted), or nil when none exists.
func (r *JobRepository) LatestResumable(ctx context.Context, kind domain.JobKind) (*domain.SyncJob, error) {
	var job domain.SyncJob
	err := r.db.WithContext(ctx).
		Where("kind = ? AND status IN ?", kind, []domain.JobStatus{domain.JobStatusRunning, domain.JobStatusInterrupted}).
		Order("created_at DESC").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageErr("latest resumable job", err)
	}
	return &job, nil
}

// MarkRunning flips a job into running state. The start time is stamped on
// the first transition only; a resumed invocation keeps the original one.
func (r *JobRepository) MarkRunning(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return storageErr("mark job running", r.db.WithContext(ctx).
		Model(&domain.SyncJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     domain.JobStatusRunning,
			"last_error": "",
			"started_at": gorm.Expr("COALESCE(started_at, ?)", now),
		}).Error)
}

// AddCounters atomically increments the job's aggregate counters.
func (r *JobRepository) AddCounters(ctx context.Context, id string, total, synced, failed int) error {
	return storageErr("add job counters", r.db.WithContext(ctx).
		Model(&domain.SyncJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_products":  gorm.Expr("total_products + ?", total),
			"synced_products": gorm.Expr("synced_products + ?", synced),
			"failed_products": gorm.Expr("failed_products + ?", failed),
		}).Error)
}

// Finish records the job's final status. Terminal statuses also stamp
// completed_at; an interrupted job stays open for a later resume.
func (r *JobRepository) Finish(ctx context.Context, id string, status domain.JobStatus, lastError string) error {
	updates := map[string]interface{}{
		"status":     status,
		"last_error": lastError,
	}
	if status.Terminal() {
		now := time.Now().UTC()
		updates["completed_at"] = &now
	}
	return storageErr("finish job", r.db.WithContext(ctx).
		Model(&domain.SyncJob{}).
		Where("id = ?", id).
		Updates(updates).Error)
}
