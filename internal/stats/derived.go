package stats

// ROI is average rent over average sale price for the same bedroom class.
// Undefined when either operand is undefined or the sale average is zero.
func ROI(saleAvg, rentAvg *float64) *float64 {
	if saleAvg == nil || rentAvg == nil || *saleAvg == 0 {
		return nil
	}
	return Float(*rentAvg / *saleAvg)
}

// PerUnitRatio is yearly transaction count over physical unit count.
// Unknown or zero unit count makes the ratio undefined.
func PerUnitRatio(txCount int, unitCount int, unitCountKnown bool) *float64 {
	if !unitCountKnown || unitCount <= 0 {
		return nil
	}
	return Float(float64(txCount) / float64(unitCount))
}

// MonthlyLiquidity turns the yearly per-unit ratio into a monthly turnover
// rate.
func MonthlyLiquidity(perUnit *float64) *float64 {
	if perUnit == nil {
		return nil
	}
	return Float(*perUnit / 12)
}

// PercentChange is 100 × (curr − prev) ÷ prev, with the degenerate cases
// pinned: prev 0 and curr > 0 is 100, prev 0 and curr 0 is 0.
func PercentChange(curr, prev *float64) *float64 {
	if curr == nil || prev == nil {
		return nil
	}
	if *prev == 0 {
		if *curr > 0 {
			return Float(100)
		}
		return Float(0)
	}
	return Float(100 * (*curr - *prev) / *prev)
}

// Versus expresses value as a percentage of a reference baseline. A zero
// reference yields 0, never a division error.
func Versus(value, reference *float64) *float64 {
	if value == nil || reference == nil {
		return nil
	}
	if *reference == 0 {
		return Float(0)
	}
	return Float(100 * *value / *reference)
}
