package models

import "time"

// EntityType is the granularity a report row is produced at.
type EntityType string

const (
	EntityBuilding EntityType = "building"
	EntityArea     EntityType = "area"
	EntityCity     EntityType = "city"
)

// Building is a canonical building entity. The room-count map and the
// exposure accumulators are maintained by the ingestion pipeline; this
// engine reads them and never recomputes them from raw records.
type Building struct {
	ID        int64          `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"index"`
	ProjectID *int64         `json:"project_id" gorm:"index"`
	AreaID    *int64         `json:"area_id" gorm:"index"`
	Rooms     map[string]int `json:"rooms" gorm:"serializer:json"`

	// Accumulated listing-exposure bookkeeping, updated atomically per
	// ingested ad. Average exposure = days / count.
	SaleExposureDays float64 `json:"sale_exposure_days"`
	SaleAdCount      int64   `json:"sale_ad_count"`
	RentExposureDays float64 `json:"rent_exposure_days"`
	RentAdCount      int64   `json:"rent_ad_count"`

	CreatedAt time.Time `json:"created_at"`
}

// Project groups buildings under a development name; resolving a project
// expands to its building set.
type Project struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
}

// Area is a geographic area; polygon assignment happens upstream.
type Area struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
}
