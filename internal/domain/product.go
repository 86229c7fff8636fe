package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product represents one synced catalog record: a small normalized field
// subset plus the full original payload kept verbatim.
type Product struct {
	ID              string          `gorm:"type:text;primaryKey" json:"id"`
	EprelID         string          `gorm:"type:text;not null;uniqueIndex:idx_products_category_eprel" json:"eprel_id"`
	Category        string          `gorm:"type:text;not null;uniqueIndex:idx_products_category_eprel;index:idx_products_category" json:"category"`
	ModelIdentifier string          `gorm:"type:text" json:"model_identifier,omitempty"`
	Brand           string          `gorm:"type:text" json:"brand,omitempty"`
	EnergyClass     string          `gorm:"type:text" json:"energy_class,omitempty"`
	Status          string          `gorm:"type:text;default:active" json:"status"`
	RegistrationAt  *time.Time      `json:"registration_at,omitempty"`
	OnMarketStartAt *time.Time      `json:"on_market_start_at,omitempty"`
	OnMarketEndAt   *time.Time      `json:"on_market_end_at,omitempty"`
	Details         CategoryDetails `gorm:"type:text" json:"details"`
	Raw             RawPayload      `gorm:"type:text;not null" json:"raw"`
	LabelStorageKey string          `gorm:"type:text" json:"label_storage_key,omitempty"`
	FicheStorageKey string          `gorm:"type:text" json:"fiche_storage_key,omitempty"`
	LastSyncAt      time.Time       `json:"last_sync_at"`
	SyncVersion     int             `gorm:"default:1" json:"sync_version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string {
	return "products"
}

// NewProductFromRaw normalizes one upstream record into a Product. The raw
// payload is retained verbatim; only the fields the engine needs are lifted.
// A record without an external id fails with a ValidationError.
func NewProductFromRaw(category string, raw RawPayload) (*Product, error) {
	eprelID := raw.ExternalID()
	if eprelID == "" {
		return nil, &ValidationError{Field: "productId", Reason: "missing external product id"}
	}

	p := &Product{
		ID:              uuid.New().String(),
		EprelID:         eprelID,
		Category:        category,
		ModelIdentifier: raw.String("modelIdentifier", "modelName"),
		Brand:           raw.String("brand", "brandName"),
		EnergyClass:     raw.String("energyClass", "energyEfficiencyClass"),
		Status:          raw.String("status"),
		Details:         ExtractDetails(category, raw),
		Raw:             raw,
		LastSyncAt:      time.Now().UTC(),
		SyncVersion:     1,
	}
	if p.Status == "" {
		p.Status = "active"
	}
	p.RegistrationAt = parseAPIDate(raw.String("registrationDate"))
	p.OnMarketStartAt = parseAPIDate(raw.String("onMarketStartDate"))
	p.OnMarketEndAt = parseAPIDate(raw.String("onMarketEndDate"))

	return p, nil
}

// parseAPIDate tolerates the date layouts EPREL mixes in its responses.
func parseAPIDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
