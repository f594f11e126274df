package models

import (
	"time"

	"marketpulse/server/internal/bedrooms"
)

// Summary holds the basic statistics over one filtered record set. A nil
// field means undefined (no data), which is distinct from zero and must
// never be averaged in as zero at the next level up.
type Summary struct {
	Avg    *float64 `json:"avg"`
	Median *float64 `json:"median"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Count  int      `json:"count"`
}

// WindowStats is everything a report row knows about one entity, one
// bedroom class and one 365-day window.
type WindowStats struct {
	Sale Summary `json:"sale"`
	Rent Summary `json:"rent"`

	SaleExposureDays *float64 `json:"sale_exposure_days"`
	RentExposureDays *float64 `json:"rent_exposure_days"`

	// Yearly transaction count over physical unit count.
	SalePerUnit *float64 `json:"sale_per_unit"`
	RentPerUnit *float64 `json:"rent_per_unit"`

	ROI       *float64 `json:"roi"`
	Liquidity *float64 `json:"liquidity"`
}

// EntityReport is one persisted row per (entity, bedroom class). LY is the
// trailing 365-day window, PY the 365 days before that. Area and city rows
// additionally carry the by-building variants: the mean of the next level
// down's report values, skipping undefined contributions.
//
// The (entity_type, entity_id, bedroom_class) triple is unique;
// recalculation overwrites in place and never appends.
type EntityReport struct {
	ID           int64          `json:"id" gorm:"primaryKey"`
	EntityType   EntityType     `json:"entity_type" gorm:"uniqueIndex:idx_reports_entity"`
	EntityID     int64          `json:"entity_id" gorm:"uniqueIndex:idx_reports_entity"`
	BedroomClass bedrooms.Class `json:"bedroom_class" gorm:"uniqueIndex:idx_reports_entity"`

	LY WindowStats `json:"ly" gorm:"serializer:json"`
	PY WindowStats `json:"py" gorm:"serializer:json"`

	ByBuildingLY *WindowStats `json:"by_building_ly" gorm:"serializer:json"`
	ByBuildingPY *WindowStats `json:"by_building_py" gorm:"serializer:json"`

	RecentDeals []DealSnapshot `json:"recent_deals" gorm:"serializer:json"`

	RunID      string    `json:"run_id"`
	ComputedAt time.Time `json:"computed_at"`
}
