// Package stats computes the per-entity price statistics and the derived
// ratios built on top of them. Undefined values are nil pointers and
// propagate as nil through every formula; they are never coerced to zero.
package stats

import (
	"sort"

	"marketpulse/server/internal/models"
)

// Float returns a pointer to v. Convenience for literals in callers/tests.
func Float(v float64) *float64 {
	return &v
}

// Compute summarizes a set of positive prices already filtered to one
// entity, kind, bedroom class and window. An empty set yields a Summary
// with Count 0 and every other field undefined.
func Compute(prices []float64) models.Summary {
	if len(prices) == 0 {
		return models.Summary{}
	}

	sorted := make([]float64, len(prices))
	copy(sorted, prices)
	sort.Float64s(sorted)

	sum := 0.0
	for _, p := range sorted {
		sum += p
	}

	return models.Summary{
		Avg:    Float(sum / float64(len(sorted))),
		Median: Float(median(sorted)),
		Min:    Float(sorted[0]),
		Max:    Float(sorted[len(sorted)-1]),
		Count:  len(sorted),
	}
}

// median expects a sorted, non-empty slice.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// MeanDefined averages only the defined samples; it returns nil when every
// sample is nil. This is the by-building rollup rule: a building lacking a
// field never contributes a zero to its area's average.
func MeanDefined(values []*float64) *float64 {
	sum := 0.0
	n := 0
	for _, v := range values {
		if v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return nil
	}
	return Float(sum / float64(n))
}

// ExposureAverage derives average exposure days from the building's
// incrementally maintained accumulators. Zero ads means undefined.
func ExposureAverage(totalDays float64, adCount int64) *float64 {
	if adCount <= 0 {
		return nil
	}
	return Float(totalDays / float64(adCount))
}
