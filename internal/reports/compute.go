package reports

import (
	"context"
	"fmt"
	"math"
	"time"

	"marketpulse/server/internal/bedrooms"
	"marketpulse/server/internal/database"
	"marketpulse/server/internal/models"
	"marketpulse/server/internal/stats"
)

const (
	windowDays      = 365
	recentDealCount = 3
	recentScanLimit = 100
)

func (b *Builder) computeReport(ctx context.Context, runID string, j job) (*models.EntityReport, string, error) {
	switch j.entityType {
	case models.EntityBuilding:
		return b.computeBuildingReport(ctx, runID, j.entityID, j.class)
	case models.EntityArea:
		return b.computeAreaReport(ctx, runID, j.entityID, j.class)
	case models.EntityCity:
		return b.computeCityReport(ctx, runID, j.class)
	default:
		return nil, "", fmt.Errorf("unknown entity type: %s", j.entityType)
	}
}

func (b *Builder) windows() (lyFrom, lyTo, pyFrom, pyTo time.Time) {
	lyTo = b.now().UTC()
	lyFrom = lyTo.AddDate(0, 0, -windowDays)
	pyTo = lyFrom
	pyFrom = lyFrom.AddDate(0, 0, -windowDays)
	return lyFrom, lyTo, pyFrom, pyTo
}

// windowRecords is everything one window contributes to a report.
type windowRecords struct {
	salePrices []float64
	rentPrices []float64
	saleTxs    int
	rentTxs    int
}

func (w windowRecords) empty() bool {
	return len(w.salePrices) == 0 && len(w.rentPrices) == 0 && w.saleTxs == 0 && w.rentTxs == 0
}

func (b *Builder) collectWindow(ctx context.Context, scope database.Scope, class bedrooms.Class, from, to time.Time) (windowRecords, error) {
	var w windowRecords

	saleListings, err := b.db.GetListings(ctx, models.KindSale, scope, from, to)
	if err != nil {
		return w, err
	}
	rentListings, err := b.db.GetListings(ctx, models.KindRent, scope, from, to)
	if err != nil {
		return w, err
	}
	saleTxs, err := b.db.GetTransactions(ctx, models.KindSale, scope, from, to)
	if err != nil {
		return w, err
	}
	rentTxs, err := b.db.GetTransactions(ctx, models.KindRent, scope, from, to)
	if err != nil {
		return w, err
	}

	w.salePrices = listingPricesForClass(saleListings, class)
	w.rentPrices = listingPricesForClass(rentListings, class)
	w.saleTxs = countTransactionsForClass(saleTxs, class)
	w.rentTxs = countTransactionsForClass(rentTxs, class)
	return w, nil
}

func listingPricesForClass(listings []models.RawListing, class bedrooms.Class) []float64 {
	var prices []float64
	for _, l := range listings {
		c, err := bedrooms.Normalize(l.Bedrooms)
		if err != nil || c != class {
			continue
		}
		prices = append(prices, l.Price)
	}
	return prices
}

func countTransactionsForClass(txs []models.RawTransaction, class bedrooms.Class) int {
	n := 0
	for _, tx := range txs {
		if c, err := bedrooms.Normalize(tx.Bedrooms); err == nil && c == class {
			n++
		}
	}
	return n
}

func (b *Builder) recentDeals(ctx context.Context, scope database.Scope, class bedrooms.Class) ([]models.DealSnapshot, error) {
	txs, err := b.db.GetRecentTransactions(ctx, scope, recentScanLimit)
	if err != nil {
		return nil, err
	}

	var deals []models.DealSnapshot
	for _, tx := range txs {
		c, err := bedrooms.Normalize(tx.Bedrooms)
		if err != nil || c != class {
			continue
		}
		deals = append(deals, models.DealSnapshot{
			Date:      tx.TransactedAt,
			Price:     tx.Price,
			FloorArea: tx.FloorArea,
		})
		if len(deals) == recentDealCount {
			break
		}
	}
	return deals, nil
}

func (b *Builder) computeBuildingReport(ctx context.Context, runID string, buildingID int64, class bedrooms.Class) (*models.EntityReport, string, error) {
	building, err := b.db.GetBuilding(ctx, buildingID)
	if err != nil {
		return nil, "", err
	}

	scope := database.Scope{BuildingIDs: []int64{buildingID}}
	lyFrom, lyTo, pyFrom, pyTo := b.windows()

	ly, err := b.collectWindow(ctx, scope, class, lyFrom, lyTo)
	if err != nil {
		return nil, "", err
	}

	units, unitsKnown := bedrooms.UnitCount(building.Rooms, class)
	if (!unitsKnown || units == 0) && ly.empty() {
		return nil, ReasonUnitCount, nil
	}
	if ly.empty() {
		return nil, ReasonNoRecords, nil
	}

	py, err := b.collectWindow(ctx, scope, class, pyFrom, pyTo)
	if err != nil {
		return nil, "", err
	}

	deals, err := b.recentDeals(ctx, scope, class)
	if err != nil {
		return nil, "", err
	}

	report := &models.EntityReport{
		EntityType:   models.EntityBuilding,
		EntityID:     buildingID,
		BedroomClass: class,
		LY:           buildingWindowStats(building, ly, units, unitsKnown),
		PY:           buildingWindowStats(building, py, units, unitsKnown),
		RecentDeals:  deals,
		RunID:        runID,
		ComputedAt:   b.now().UTC(),
	}
	return report, "", nil
}

// buildingWindowStats assembles one window of a building report. The
// exposure averages come from the accumulators ingestion maintains, not
// from a raw rescan, so they are identical in both windows.
func buildingWindowStats(building *models.Building, w windowRecords, units int, unitsKnown bool) models.WindowStats {
	ws := models.WindowStats{
		Sale:             stats.Compute(w.salePrices),
		Rent:             stats.Compute(w.rentPrices),
		SaleExposureDays: stats.ExposureAverage(building.SaleExposureDays, building.SaleAdCount),
		RentExposureDays: stats.ExposureAverage(building.RentExposureDays, building.RentAdCount),
		SalePerUnit:      stats.PerUnitRatio(w.saleTxs, units, unitsKnown),
		RentPerUnit:      stats.PerUnitRatio(w.rentTxs, units, unitsKnown),
	}
	ws.ROI = stats.ROI(ws.Sale.Avg, ws.Rent.Avg)
	ws.Liquidity = stats.MonthlyLiquidity(ws.SalePerUnit)
	return ws
}

// rawWindowStats assembles the direct-aggregate window of an area or city
// report. Exposure and per-unit figures are building-level concepts; at
// the higher levels they surface through the by-building means instead.
func rawWindowStats(w windowRecords) models.WindowStats {
	ws := models.WindowStats{
		Sale: stats.Compute(w.salePrices),
		Rent: stats.Compute(w.rentPrices),
	}
	ws.ROI = stats.ROI(ws.Sale.Avg, ws.Rent.Avg)
	return ws
}

func (b *Builder) computeAreaReport(ctx context.Context, runID string, areaID int64, class bedrooms.Class) (*models.EntityReport, string, error) {
	if _, err := b.db.GetArea(ctx, areaID); err != nil {
		return nil, "", err
	}

	scope := database.Scope{AreaID: &areaID}
	lyFrom, lyTo, pyFrom, pyTo := b.windows()

	ly, err := b.collectWindow(ctx, scope, class, lyFrom, lyTo)
	if err != nil {
		return nil, "", err
	}

	buildingReports, err := b.db.GetBuildingReportsByArea(ctx, areaID, class)
	if err != nil {
		return nil, "", err
	}

	if ly.empty() && len(buildingReports) == 0 {
		return nil, ReasonNoRecords, nil
	}

	py, err := b.collectWindow(ctx, scope, class, pyFrom, pyTo)
	if err != nil {
		return nil, "", err
	}

	deals, err := b.recentDeals(ctx, scope, class)
	if err != nil {
		return nil, "", err
	}

	report := &models.EntityReport{
		EntityType:   models.EntityArea,
		EntityID:     areaID,
		BedroomClass: class,
		LY:           rawWindowStats(ly),
		PY:           rawWindowStats(py),
		ByBuildingLY: meanWindowStats(windowsOf(buildingReports, false)),
		ByBuildingPY: meanWindowStats(windowsOf(buildingReports, true)),
		RecentDeals:  deals,
		RunID:        runID,
		ComputedAt:   b.now().UTC(),
	}
	return report, "", nil
}

func (b *Builder) computeCityReport(ctx context.Context, runID string, class bedrooms.Class) (*models.EntityReport, string, error) {
	scope := database.Scope{}
	lyFrom, lyTo, pyFrom, pyTo := b.windows()

	ly, err := b.collectWindow(ctx, scope, class, lyFrom, lyTo)
	if err != nil {
		return nil, "", err
	}

	areaReports, err := b.db.GetReportsByType(ctx, models.EntityArea, class)
	if err != nil {
		return nil, "", err
	}

	if ly.empty() && len(areaReports) == 0 {
		return nil, ReasonNoRecords, nil
	}

	py, err := b.collectWindow(ctx, scope, class, pyFrom, pyTo)
	if err != nil {
		return nil, "", err
	}

	deals, err := b.recentDeals(ctx, scope, class)
	if err != nil {
		return nil, "", err
	}

	report := &models.EntityReport{
		EntityType:   models.EntityCity,
		EntityID:     CityEntityID,
		BedroomClass: class,
		LY:           rawWindowStats(ly),
		PY:           rawWindowStats(py),
		ByBuildingLY: meanWindowStats(windowsOf(areaReports, false)),
		ByBuildingPY: meanWindowStats(windowsOf(areaReports, true)),
		RecentDeals:  deals,
		RunID:        runID,
		ComputedAt:   b.now().UTC(),
	}
	return report, "", nil
}

func windowsOf(reports []models.EntityReport, prior bool) []models.WindowStats {
	windows := make([]models.WindowStats, len(reports))
	for i, r := range reports {
		if prior {
			windows[i] = r.PY
		} else {
			windows[i] = r.LY
		}
	}
	return windows
}

// meanWindowStats averages each field across the lower-level reports,
// skipping undefined contributions. A report lacking a field never counts
// as a zero-valued sample.
func meanWindowStats(windows []models.WindowStats) *models.WindowStats {
	if len(windows) == 0 {
		return nil
	}

	collect := func(pick func(models.WindowStats) *float64) *float64 {
		values := make([]*float64, len(windows))
		for i, w := range windows {
			values[i] = pick(w)
		}
		return stats.MeanDefined(values)
	}

	meanSummary := func(pick func(models.WindowStats) models.Summary) models.Summary {
		countSum := 0
		for _, w := range windows {
			countSum += pick(w).Count
		}
		return models.Summary{
			Avg:    collect(func(w models.WindowStats) *float64 { return pick(w).Avg }),
			Median: collect(func(w models.WindowStats) *float64 { return pick(w).Median }),
			Min:    collect(func(w models.WindowStats) *float64 { return pick(w).Min }),
			Max:    collect(func(w models.WindowStats) *float64 { return pick(w).Max }),
			Count:  int(math.Round(float64(countSum) / float64(len(windows)))),
		}
	}

	return &models.WindowStats{
		Sale:             meanSummary(func(w models.WindowStats) models.Summary { return w.Sale }),
		Rent:             meanSummary(func(w models.WindowStats) models.Summary { return w.Rent }),
		SaleExposureDays: collect(func(w models.WindowStats) *float64 { return w.SaleExposureDays }),
		RentExposureDays: collect(func(w models.WindowStats) *float64 { return w.RentExposureDays }),
		SalePerUnit:      collect(func(w models.WindowStats) *float64 { return w.SalePerUnit }),
		RentPerUnit:      collect(func(w models.WindowStats) *float64 { return w.RentPerUnit }),
		ROI:              collect(func(w models.WindowStats) *float64 { return w.ROI }),
		Liquidity:        collect(func(w models.WindowStats) *float64 { return w.Liquidity }),
	}
}
