package repository

import (
	"context"
	"time"

	"github.com/dvdzapata/EPREL/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GroupRepository tracks per-category catalog metadata.
type GroupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// EnsureKnown seeds rows for all known product groups, leaving existing
// rows untouched.
func (r *GroupRepository) EnsureKnown(ctx context.Context) error {
	groups := make([]domain.ProductGroup, 0, len(domain.KnownGroups))
	for _, code := range domain.KnownGroups {
		groups = append(groups, domain.ProductGroup{Code: code})
	}
	return storageErr("seed product groups", r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&groups).Error)
}

// SetTotal records the upstream catalog size learned during a sweep.
func (r *GroupRepository) SetTotal(ctx context.Context, code string, total int) error {
	now := time.Now().UTC()
	return storageErr("update product group total", r.db.WithContext(ctx).
		Model(&domain.ProductGroup{}).
		Where("code = ?", code).
		Updates(map[string]interface{}{
			"total_products": total,
			"last_sync_at":   &now,
		}).Error)
}

// List retrieves all product group rows ordered by code.
func (r *GroupRepository) List(ctx context.Context) ([]domain.ProductGroup, error) {
	var groups []domain.ProductGroup
	if err := r.db.WithContext(ctx).Order("code").Find(&groups).Error; err != nil {
		return nil, storageErr("list product groups", err)
	}
	return groups, nil
}
