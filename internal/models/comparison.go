package models

import "time"

// MetricComparison is one metric of a comparison answer: the current-window
// value, the percent change against the prior window, and the value as a
// percentage of the next-level-up baseline. Nil means undefined.
type MetricComparison struct {
	Current *float64 `json:"current"`
	Change  *float64 `json:"change"`
	Versus  *float64 `json:"versus"`
}

// ComparisonResult is the flat answer to an ad-hoc market query.
type ComparisonResult struct {
	Kind       Kind   `json:"kind"`
	SearchTerm string `json:"search_term"`
	Bedrooms   string `json:"bedrooms,omitempty"`
	Period     string `json:"period"`

	// What the search term resolved to. Level "city" with a nil ID is the
	// no-term (or unresolved-term) city-wide case.
	ResolvedLevel string `json:"resolved_level"`
	ResolvedID    *int64 `json:"resolved_id,omitempty"`
	ResolvedName  string `json:"resolved_name,omitempty"`

	AvgPrice     MetricComparison `json:"avg_price"`
	MedianPrice  MetricComparison `json:"median_price"`
	PricePerArea MetricComparison `json:"price_per_area"`
	PriceRange   MetricComparison `json:"price_range"`
	DealCount    MetricComparison `json:"deal_count"`
	DealVolume   MetricComparison `json:"deal_volume"`
	Liquidity    MetricComparison `json:"liquidity"`
	ROI          MetricComparison `json:"roi"`

	BuildingCount int      `json:"building_count"`
	UnitCount     *int     `json:"unit_count"`
	TotalDeals    int      `json:"total_deals"`
	CityGrowth    *float64 `json:"city_growth"`

	ComputedAt time.Time `json:"computed_at"`
}

// QueryLog is the immutable persisted record of one comparison query.
type QueryLog struct {
	ID         string           `json:"id" gorm:"primaryKey"`
	Kind       Kind             `json:"kind"`
	SearchTerm string           `json:"search_term"`
	Bedrooms   string           `json:"bedrooms"`
	Period     string           `json:"period"`
	Result     ComparisonResult `json:"result" gorm:"serializer:json"`
	CreatedAt  time.Time        `json:"created_at"`
}
