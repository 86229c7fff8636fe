package repository

import (
	"context"
	"errors"

	"github.com/dvdzapata/EPREL/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository handles product persistence.
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Upsert creates or updates a product keyed by (category, eprel_id).
// Re-applying the same external id never creates a second row; the stored
// sync_version increments on every successful re-application so a resumed
// sweep is observable without being destructive. Label document keys are
// left untouched by catalog re-syncs.
func (r *ProductRepository) Upsert(ctx context.Context, p *domain.Product) error {
	return storageErr("upsert product", r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "category"}, {Name: "eprel_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"model_identifier":   p.ModelIdentifier,
				"brand":              p.Brand,
				"energy_class":       p.EnergyClass,
				"status":             p.Status,
				"registration_at":    p.RegistrationAt,
				"on_market_start_at": p.OnMarketStartAt,
				"on_market_end_at":   p.OnMarketEndAt,
				"details":            p.Details,
				"raw":                p.Raw,
				"last_sync_at":       p.LastSyncAt,
				"sync_version":       gorm.Expr("products.sync_version + 1"),
			}),
		}).
		Create(p).Error)
}

// GetByExternalID retrieves a product by category and upstream id.
func (r *ProductRepository) GetByExternalID(ctx context.Context, category, eprelID string) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).
		First(&p, "category = ? AND eprel_id = ?", category, eprelID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageErr("get product", err)
	}
	return &p, nil
}

// Count returns the total number of stored products.
func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Product{}).Count(&count).Error; err != nil {
		return 0, storageErr("count products", err)
	}
	return count, nil
}

// CategoryCount pairs a product group code with its stored record count.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// CountByCategory returns stored record counts grouped by category,
// largest first.
func (r *ProductRepository) CountByCategory(ctx context.Context) ([]CategoryCount, error) {
	var counts []CategoryCount
	if err := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Select("category, COUNT(*) as count").
		Group("category").
		Order("count DESC").
		Scan(&counts).Error; err != nil {
		return nil, storageErr("count products by category", err)
	}
	return counts, nil
}

// ListMissingLabels retrieves products in a category that have no stored
// energy label document yet.
func (r *ProductRepository) ListMissingLabels(ctx context.Context, category string, limit int) ([]domain.Product, error) {
	var products []domain.Product
	query := r.db.WithContext(ctx).
		Where("label_storage_key = '' OR label_storage_key IS NULL")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Order("created_at").Find(&products).Error; err != nil {
		return nil, storageErr("list products missing labels", err)
	}
	return products, nil
}

// SetDocumentKeys records the storage keys of downloaded label documents.
func (r *ProductRepository) SetDocumentKeys(ctx context.Context, id, labelKey, ficheKey string) error {
	updates := map[string]interface{}{}
	if labelKey != "" {
		updates["label_storage_key"] = labelKey
	}
	if ficheKey != "" {
		updates["fiche_storage_key"] = ficheKey
	}
	if len(updates) == 0 {
		return nil
	}
	return storageErr("set product document keys", r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		Updates(updates).Error)
}
