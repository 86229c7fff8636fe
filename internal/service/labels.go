package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/dvdzapata/EPREL/internal/domain"
	"github.com/dvdzapata/EPREL/internal/logger"
	"github.com/dvdzapata/EPREL/internal/storage"
)

// DocumentSource fetches label and fiche documents for a product.
type DocumentSource interface {
	EnergyLabel(ctx context.Context, category, productID, format string) ([]byte, error)
	ProductFiche(ctx context.Context, category, productID, format string) ([]byte, error)
}

// ProductCatalog is the slice of the product repository the label backfill
// needs.
type ProductCatalog interface {
	ListMissingLabels(ctx context.Context, category string, limit int) ([]domain.Product, error)
	SetDocumentKeys(ctx context.Context, id, labelKey, ficheKey string) error
}

// BackfillResult summarizes one label backfill pass.
type BackfillResult struct {
	Processed int `json:"processed"`
	Uploaded  int `json:"uploaded"`
	Failed    int `json:"failed"`
}

// LabelService downloads energy label and fiche PDFs for synced products and
// stores them in object storage, recording the storage keys on the product
// row. Downloads go through the same polite rate gate as catalog fetches.
type LabelService struct {
	products ProductCatalog
	source   DocumentSource
	store    storage.ObjectStorage
	limiter  *rate.Limiter
	log      *logger.Logger
}

func NewLabelService(products ProductCatalog, source DocumentSource, store storage.ObjectStorage, requestDelay time.Duration, log *logger.Logger) *LabelService {
	limit := rate.Inf
	if requestDelay > 0 {
		limit = rate.Every(requestDelay)
	}
	if log == nil {
		log = logger.Default()
	}
	return &LabelService{
		products: products,
		source:   source,
		store:    store,
		limiter:  rate.NewLimiter(limit, 1),
		log:      log.WithField(logger.FieldComponent, "labels"),
	}
}

// Backfill downloads documents for up to limit products that have no stored
// label yet. An empty category means all categories. Per-product download
// failures are counted and skipped so one dead document does not stall the
// whole pass.
func (s *LabelService) Backfill(ctx context.Context, category string, limit int) (*BackfillResult, error) {
	products, err := s.products.ListMissingLabels(ctx, category, limit)
	if err != nil {
		return nil, err
	}

	res := &BackfillResult{}
	for i := range products {
		p := &products[i]
		res.Processed++

		if err := ctx.Err(); err != nil {
			return res, err
		}

		labelKey, ficheKey, err := s.fetchAndStore(ctx, p)
		if err != nil {
			s.log.WithFields(logger.Fields{
				logger.FieldCategory: p.Category,
				"eprel_id":           p.EprelID,
			}).WithError(err).Warn("document backfill failed for product")
			res.Failed++
			continue
		}

		if err := s.products.SetDocumentKeys(ctx, p.ID, labelKey, ficheKey); err != nil {
			return res, err
		}
		res.Uploaded++
	}

	s.log.WithFields(logger.Fields{
		"processed": res.Processed,
		"uploaded":  res.Uploaded,
		"failed":    res.Failed,
	}).Info("label backfill finished")
	return res, nil
}

func (s *LabelService) fetchAndStore(ctx context.Context, p *domain.Product) (labelKey, ficheKey string, err error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", "", err
	}
	label, err := s.source.EnergyLabel(ctx, p.Category, p.EprelID, "PDF")
	if err != nil {
		return "", "", fmt.Errorf("energy label: %w", err)
	}
	labelKey = documentKey("labels", p.Category, p.EprelID)
	if err := s.store.Upload(ctx, labelKey, bytes.NewReader(label), int64(len(label)), "application/pdf"); err != nil {
		return "", "", err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", "", err
	}
	fiche, err := s.source.ProductFiche(ctx, p.Category, p.EprelID, "PDF")
	if err != nil {
		// The fiche is optional upstream; keep the label we already have.
		s.log.WithField("eprel_id", p.EprelID).WithError(err).Debug("fiche unavailable")
		return labelKey, "", nil
	}
	ficheKey = documentKey("fiches", p.Category, p.EprelID)
	if err := s.store.Upload(ctx, ficheKey, bytes.NewReader(fiche), int64(len(fiche)), "application/pdf"); err != nil {
		return "", "", err
	}
	return labelKey, ficheKey, nil
}

func documentKey(kind, category, eprelID string) string {
	return fmt.Sprintf("%s/%s/%s.pdf", kind, category, eprelID)
}
