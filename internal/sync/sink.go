package sync

import (
	"context"

	"github.com/dvdzapata/EPREL/internal/domain"
	"github.com/dvdzapata/EPREL/internal/repository"
)

// Sink persists one raw catalog record. Implementations must be idempotent:
// re-delivering the same record after a crash may happen and must converge on
// a single stored row.
type Sink interface {
	Upsert(ctx context.Context, category string, raw domain.RawPayload) error
}

// ProductSink normalizes raw records into products and writes them through
// the product repository. Normalization failures surface as
// domain.ValidationError so callers can count them without aborting the page;
// database failures surface as domain.StorageError and do abort.
type ProductSink struct {
	products *repository.ProductRepository
}

func NewProductSink(products *repository.ProductRepository) *ProductSink {
	return &ProductSink{products: products}
}

func (s *ProductSink) Upsert(ctx context.Context, category string, raw domain.RawPayload) error {
	product, err := domain.NewProductFromRaw(category, raw)
	if err != nil {
		return err
	}
	return s.products.Upsert(ctx, product)
}
