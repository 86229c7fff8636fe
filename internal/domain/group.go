package domain

import "time"

// KnownGroups lists the EPREL product group codes the sync understands.
// Each group paginates independently upstream.
var KnownGroups = []string{
	"airconditioners",
	"dishwashers",
	"washingmachines",
	"washerdryers",
	"tumbledryers",
	"refrigeratingappliances",
	"electronicdisplays",
	"lightsources",
	"ovens",
	"rangehoods",
	"tyres",
	"waterheaters",
	"spaceheaters",
	"ventilationunits",
	"professionalrefrigeratedstoragecabinets",
	"solidfuelboilers",
	"localheaterssolid",
	"localheatersgaseous",
}

// IsKnownGroup reports whether code names a known product group.
func IsKnownGroup(code string) bool {
	for _, g := range KnownGroups {
		if g == code {
			return true
		}
	}
	return false
}

// ProductGroup tracks per-category catalog metadata learned during syncs.
type ProductGroup struct {
	Code          string     `gorm:"type:text;primaryKey" json:"code"`
	TotalProducts int        `gorm:"default:0" json:"total_products"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName returns the database table name for ProductGroup.
func (ProductGroup) TableName() string {
	return "product_groups"
}
