package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/dvdzapata/EPREL/internal/domain"
)

type fakeCatalog struct {
	missing []domain.Product
	keys    map[string][2]string
}

func (c *fakeCatalog) ListMissingLabels(_ context.Context, category string, limit int) ([]domain.Product, error) {
	out := c.missing
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *fakeCatalog) SetDocumentKeys(_ context.Context, id, labelKey, ficheKey string) error {
	if c.keys == nil {
		c.keys = make(map[string][2]string)
	}
	c.keys[id] = [2]string{labelKey, ficheKey}
	return nil
}

type fakeDocSource struct {
	labelErr map[string]error
	ficheErr map[string]error
}

func (s *fakeDocSource) EnergyLabel(_ context.Context, _, productID, _ string) ([]byte, error) {
	if err := s.labelErr[productID]; err != nil {
		return nil, err
	}
	return []byte("%PDF-label-" + productID), nil
}

func (s *fakeDocSource) ProductFiche(_ context.Context, _, productID, _ string) ([]byte, error) {
	if err := s.ficheErr[productID]; err != nil {
		return nil, err
	}
	return []byte("%PDF-fiche-" + productID), nil
}

type fakeStore struct {
	objects map[string]int64
}

func (s *fakeStore) Upload(_ context.Context, key string, _ io.Reader, size int64, _ string) error {
	if s.objects == nil {
		s.objects = make(map[string]int64)
	}
	s.objects[key] = size
	return nil
}

func (s *fakeStore) Download(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}
func (s *fakeStore) GetURL(key string) string            { return "s3://test/" + key }
func (s *fakeStore) Delete(context.Context, string) error { return nil }
func (s *fakeStore) Exists(context.Context, string) (bool, error) {
	return false, nil
}

func product(id, category string) domain.Product {
	return domain.Product{ID: "uuid-" + id, EprelID: id, Category: category}
}

func TestBackfillUploadsLabelAndFiche(t *testing.T) {
	catalog := &fakeCatalog{missing: []domain.Product{product("100", "dishwashers")}}
	store := &fakeStore{}
	svc := NewLabelService(catalog, &fakeDocSource{}, store, 0, nil)

	res, err := svc.Backfill(context.Background(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Uploaded != 1 || res.Failed != 0 {
		t.Fatalf("result = %+v, want 1 uploaded", res)
	}

	keys := catalog.keys["uuid-100"]
	if keys[0] != "labels/dishwashers/100.pdf" {
		t.Fatalf("label key = %q", keys[0])
	}
	if keys[1] != "fiches/dishwashers/100.pdf" {
		t.Fatalf("fiche key = %q", keys[1])
	}
	if _, ok := store.objects[keys[0]]; !ok {
		t.Fatalf("label object missing, stored: %v", store.objects)
	}
}

func TestBackfillKeepsLabelWhenFicheMissing(t *testing.T) {
	catalog := &fakeCatalog{missing: []domain.Product{product("200", "tyres")}}
	source := &fakeDocSource{ficheErr: map[string]error{"200": errors.New("404")}}
	store := &fakeStore{}
	svc := NewLabelService(catalog, source, store, 0, nil)

	res, err := svc.Backfill(context.Background(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Uploaded != 1 {
		t.Fatalf("result = %+v, want the product counted as uploaded", res)
	}
	keys := catalog.keys["uuid-200"]
	if keys[0] == "" || keys[1] != "" {
		t.Fatalf("keys = %v, want label only", keys)
	}
}

func TestBackfillCountsFailedDownloads(t *testing.T) {
	catalog := &fakeCatalog{missing: []domain.Product{
		product("300", "lightsources"),
		product("301", "lightsources"),
	}}
	source := &fakeDocSource{labelErr: map[string]error{"300": errors.New("502")}}
	store := &fakeStore{}
	svc := NewLabelService(catalog, source, store, 0, nil)

	res, err := svc.Backfill(context.Background(), "lightsources", 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 2 || res.Uploaded != 1 || res.Failed != 1 {
		t.Fatalf("result = %+v, want 2/1/1", res)
	}
	if _, ok := catalog.keys["uuid-300"]; ok {
		t.Fatal("failed product should not get document keys")
	}
}
