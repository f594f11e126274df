package models

import "time"

// Kind distinguishes the two record markets.
type Kind string

const (
	KindSale Kind = "sale"
	KindRent Kind = "rent"
)

// Valid reports whether k is a known record kind.
func (k Kind) Valid() bool {
	return k == KindSale || k == KindRent
}

// RawListing is a sale or rent advertisement as written by the import
// pipeline. Immutable once ingested; this engine only reads it.
type RawListing struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	Kind       Kind      `json:"kind" gorm:"index"`
	BuildingID *int64    `json:"building_id" gorm:"index"`
	AreaID     *int64    `json:"area_id" gorm:"index"`
	Bedrooms   string    `json:"bedrooms"`
	Price      float64   `json:"price"`
	Currency   string    `json:"currency"`
	FloorArea  *float64  `json:"floor_area"`
	ListedAt   time.Time `json:"listed_at" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
}

// RawTransaction is a recorded sale or rental contract. The contract period
// bucket is only an exposure/age proxy for transaction-derived entities.
type RawTransaction struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	Kind           Kind      `json:"kind" gorm:"index"`
	BuildingID     *int64    `json:"building_id" gorm:"index"`
	AreaID         int64     `json:"area_id" gorm:"index"`
	Bedrooms       string    `json:"bedrooms"`
	Price          float64   `json:"price"`
	FloorArea      *float64  `json:"floor_area"`
	TransactedAt   time.Time `json:"transacted_at" gorm:"index"`
	ContractPeriod string    `json:"contract_period"`
	CreatedAt      time.Time `json:"created_at"`
}

// DealSnapshot is the trimmed view of a transaction kept on a report row for
// human inspection.
type DealSnapshot struct {
	Date      time.Time `json:"date"`
	Price     float64   `json:"price"`
	FloorArea *float64  `json:"floor_area"`
}
