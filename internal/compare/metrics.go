package compare

import (
	"context"
	"time"

	"marketpulse/server/internal/bedrooms"
	"marketpulse/server/internal/database"
	"marketpulse/server/internal/models"
	"marketpulse/server/internal/stats"
)

// metricSet holds one window's worth of comparison metrics for one scope.
// Nil fields are undefined.
type metricSet struct {
	avgPrice     *float64
	medianPrice  *float64
	pricePerArea *float64
	priceRange   *float64
	dealCount    int
	dealVolume   *float64
	liquidity    *float64
	roi          *float64
}

// computeMetrics scans the raw records for one scope and window. Listings
// drive the price metrics, transactions drive the deal metrics, and ROI
// needs the listing averages of both kinds regardless of the requested one.
func (s *Service) computeMetrics(ctx context.Context, kind models.Kind, scope database.Scope, classFilter *bedrooms.Class, from, to time.Time, unitsTotal int, unitsKnown bool) (*metricSet, error) {
	listings, err := s.db.GetListings(ctx, kind, scope, from, to)
	if err != nil {
		return nil, err
	}

	otherKind := models.KindRent
	if kind == models.KindRent {
		otherKind = models.KindSale
	}
	otherListings, err := s.db.GetListings(ctx, otherKind, scope, from, to)
	if err != nil {
		return nil, err
	}

	txs, err := s.db.GetTransactions(ctx, kind, scope, from, to)
	if err != nil {
		return nil, err
	}

	m := &metricSet{}

	var prices []float64
	var perArea []float64
	for _, l := range listings {
		if !matchesFilter(l.Bedrooms, classFilter) {
			continue
		}
		prices = append(prices, l.Price)
		if l.FloorArea != nil && *l.FloorArea > 0 {
			perArea = append(perArea, l.Price / *l.FloorArea)
		}
	}

	summary := stats.Compute(prices)
	m.avgPrice = summary.Avg
	m.medianPrice = summary.Median
	if summary.Min != nil && summary.Max != nil {
		m.priceRange = stats.Float(*summary.Max - *summary.Min)
	}
	m.pricePerArea = stats.Compute(perArea).Avg

	var otherPrices []float64
	for _, l := range otherListings {
		if matchesFilter(l.Bedrooms, classFilter) {
			otherPrices = append(otherPrices, l.Price)
		}
	}
	otherAvg := stats.Compute(otherPrices).Avg
	if kind == models.KindSale {
		m.roi = stats.ROI(m.avgPrice, otherAvg)
	} else {
		m.roi = stats.ROI(otherAvg, m.avgPrice)
	}

	volume := 0.0
	for _, tx := range txs {
		if !matchesFilter(tx.Bedrooms, classFilter) {
			continue
		}
		m.dealCount++
		volume += tx.Price
	}
	if m.dealCount > 0 {
		m.dealVolume = stats.Float(volume)
	}

	m.liquidity = stats.MonthlyLiquidity(stats.PerUnitRatio(m.dealCount, unitsTotal, unitsKnown))

	return m, nil
}

// matchesFilter keeps every record when no class filter is set; with a
// filter, only records whose label normalizes to that class pass.
func matchesFilter(label string, classFilter *bedrooms.Class) bool {
	if classFilter == nil {
		return true
	}
	c, err := bedrooms.Normalize(label)
	return err == nil && c == *classFilter
}
