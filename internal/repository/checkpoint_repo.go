package repository

import (
	"context"
	"errors"

	"github.com/dvdzapata/EPREL/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CheckpointRepository persists per-(job, category) pagination progress.
type CheckpointRepository struct {
	db *gorm.DB
}

// NewCheckpointRepository creates a new CheckpointRepository.
func NewCheckpointRepository(db *gorm.DB) *CheckpointRepository {
	return &CheckpointRepository{db: db}
}

// Load retrieves the checkpoint for a (job, category) pair. Absence is not
// an error: it returns (nil, nil) and signals a fresh start from page 0.
func (r *CheckpointRepository) Load(ctx context.Context, jobID, category string) (*domain.Checkpoint, error) {
	var cp domain.Checkpoint
	err := r.db.WithContext(ctx).
		First(&cp, "job_id = ? AND category = ?", jobID, category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageErr("load checkpoint", err)
	}
	return &cp, nil
}

// Save upserts the checkpoint keyed by (job_id, category) as a single
// transactional write, so a page advance and its status never land apart.
// A previously loaded checkpoint updates in place by primary key; a fresh
// one inserts with conflict resolution on the (job_id, category) key.
func (r *CheckpointRepository) Save(ctx context.Context, cp *domain.Checkpoint) error {
	if cp.ID != 0 {
		return storageErr("save checkpoint", r.db.WithContext(ctx).
			Model(&domain.Checkpoint{}).
			Where("id = ?", cp.ID).
			Updates(map[string]interface{}{
				"current_page":      cp.CurrentPage,
				"total_pages":       cp.TotalPages,
				"total_items":       cp.TotalItems,
				"last_processed_id": cp.LastProcessedID,
				"status":            cp.Status,
				"error_message":     cp.ErrorMessage,
			}).Error)
	}
	return storageErr("save checkpoint", r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "job_id"}, {Name: "category"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"current_page",
				"total_pages",
				"total_items",
				"last_processed_id",
				"status",
				"error_message",
				"updated_at",
			}),
		}).
		Create(cp).Error)
}

// ListByJob retrieves all checkpoints recorded under one job.
func (r *CheckpointRepository) ListByJob(ctx context.Context, jobID string) ([]domain.Checkpoint, error) {
	var cps []domain.Checkpoint
	if err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("category").
		Find(&cps).Error; err != nil {
		return nil, storageErr("list checkpoints", err)
	}
	return cps, nil
}
