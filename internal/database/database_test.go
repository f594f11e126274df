package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/server/internal/bedrooms"
	"marketpulse/server/internal/models"
	"marketpulse/server/internal/stats"
)

func seedEntities(t *testing.T, db *Database) (areaID, buildingID int64) {
	t.Helper()
	g := db.GetGorm()

	area := models.Area{Name: "Marina District"}
	require.NoError(t, g.Create(&area).Error)

	project := models.Project{Name: "Marina Towers"}
	require.NoError(t, g.Create(&project).Error)

	building := models.Building{
		Name:      "Marina Tower A",
		ProjectID: &project.ID,
		AreaID:    &area.ID,
		Rooms:     map[string]int{"Studio": 40, "1 B/R": 120, "2 B/R": 80},
	}
	require.NoError(t, g.Create(&building).Error)

	return area.ID, building.ID
}

func TestGetListingsScoped(t *testing.T) {
	db, err := NewTestDB()
	require.NoError(t, err)
	defer db.Close()

	areaID, buildingID := seedEntities(t, db)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	listings := []models.RawListing{
		{Kind: models.KindSale, BuildingID: &buildingID, AreaID: &areaID, Bedrooms: "2 B/R", Price: 1_000_000, Currency: "AED", ListedAt: now.AddDate(0, 0, -10)},
		{Kind: models.KindSale, BuildingID: &buildingID, AreaID: &areaID, Bedrooms: "2 B/R", Price: 1_200_000, Currency: "AED", ListedAt: now.AddDate(0, 0, -20)},
		{Kind: models.KindRent, BuildingID: &buildingID, AreaID: &areaID, Bedrooms: "2 B/R", Price: 60_000, Currency: "AED", ListedAt: now.AddDate(0, 0, -5)},
		// Outside the window
		{Kind: models.KindSale, BuildingID: &buildingID, AreaID: &areaID, Bedrooms: "2 B/R", Price: 900_000, Currency: "AED", ListedAt: now.AddDate(0, 0, -400)},
		// Different building, same area
		{Kind: models.KindSale, AreaID: &areaID, Bedrooms: "1 B/R", Price: 800_000, Currency: "AED", ListedAt: now.AddDate(0, 0, -15)},
	}
	require.NoError(t, db.GetGorm().Create(&listings).Error)

	from := now.AddDate(0, 0, -365)

	t.Run("Building scope", func(t *testing.T) {
		got, err := db.GetListings(ctx, models.KindSale, Scope{BuildingIDs: []int64{buildingID}}, from, now)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("Area scope includes unlinked buildings", func(t *testing.T) {
		got, err := db.GetListings(ctx, models.KindSale, Scope{AreaID: &areaID}, from, now)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("City-wide scope", func(t *testing.T) {
		got, err := db.GetListings(ctx, models.KindRent, Scope{}, from, now)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("Empty scope matches nothing", func(t *testing.T) {
		got, err := db.GetListings(ctx, models.KindSale, Scope{Empty: true}, from, now)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestGetTransactionsAndRecent(t *testing.T) {
	db, err := NewTestDB()
	require.NoError(t, err)
	defer db.Close()

	areaID, buildingID := seedEntities(t, db)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	txs := []models.RawTransaction{
		{Kind: models.KindSale, BuildingID: &buildingID, AreaID: areaID, Bedrooms: "2 B/R", Price: 1_100_000, TransactedAt: now.AddDate(0, 0, -3)},
		{Kind: models.KindSale, BuildingID: &buildingID, AreaID: areaID, Bedrooms: "2 B/R", Price: 1_050_000, TransactedAt: now.AddDate(0, 0, -40)},
		{Kind: models.KindSale, BuildingID: &buildingID, AreaID: areaID, Bedrooms: "1 B/R", Price: 700_000, TransactedAt: now.AddDate(0, 0, -1)},
	}
	require.NoError(t, db.GetGorm().Create(&txs).Error)

	got, err := db.GetTransactions(ctx, models.KindSale, Scope{BuildingIDs: []int64{buildingID}}, now.AddDate(0, 0, -365), now)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	recent, err := db.GetRecentTransactions(ctx, Scope{BuildingIDs: []int64{buildingID}}, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, 700_000.0, recent[0].Price, "newest first")
}

func TestUpsertReportOverwrites(t *testing.T) {
	db, err := NewTestDB()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()

	report := &models.EntityReport{
		EntityType:   models.EntityBuilding,
		EntityID:     7,
		BedroomClass: bedrooms.Class2BR,
		LY:           models.WindowStats{Sale: models.Summary{Avg: stats.Float(1_200_000), Count: 3}},
		RunID:        "run-1",
		ComputedAt:   time.Now().UTC(),
	}
	require.NoError(t, db.UpsertReport(ctx, report))

	// Same key again with different values
	second := &models.EntityReport{
		EntityType:   models.EntityBuilding,
		EntityID:     7,
		BedroomClass: bedrooms.Class2BR,
		LY:           models.WindowStats{Sale: models.Summary{Avg: stats.Float(1_300_000), Count: 4}},
		RunID:        "run-2",
		ComputedAt:   time.Now().UTC(),
	}
	require.NoError(t, db.UpsertReport(ctx, second))

	var count int64
	require.NoError(t, db.GetGorm().Model(&models.EntityReport{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "recalculation overwrites, never appends")

	got, err := db.GetReport(ctx, models.EntityBuilding, 7, bedrooms.Class2BR)
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.RunID)
	require.NotNil(t, got.LY.Sale.Avg)
	assert.Equal(t, 1_300_000.0, *got.LY.Sale.Avg)
}

func TestGetReportNotFound(t *testing.T) {
	db, err := NewTestDB()
	require.NoError(t, err)
	defer db.Close()

	_, err = db.GetReport(context.Background(), models.EntityArea, 99, bedrooms.Class1BR)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveSearchTerm(t *testing.T) {
	db, err := NewTestDB()
	require.NoError(t, err)
	defer db.Close()

	g := db.GetGorm()
	require.NoError(t, g.Create(&models.Area{Name: "Downtown"}).Error)
	require.NoError(t, g.Create(&models.Project{Name: "Skyline"}).Error)
	require.NoError(t, g.Create(&models.Building{Name: "Skyline"}).Error)
	require.NoError(t, g.Create(&models.Building{Name: "Twin Oaks"}).Error)
	require.NoError(t, g.Create(&models.Building{Name: "Twin Oaks"}).Error)

	ctx := context.Background()

	t.Run("Building beats project on shared name", func(t *testing.T) {
		res, err := db.ResolveSearchTerm(ctx, "Skyline")
		require.NoError(t, err)
		assert.Equal(t, ResolvedBuilding, res.Level)
	})

	t.Run("Case-insensitive area match", func(t *testing.T) {
		res, err := db.ResolveSearchTerm(ctx, "downtown")
		require.NoError(t, err)
		assert.Equal(t, ResolvedArea, res.Level)
		assert.Equal(t, "Downtown", res.Name)
	})

	t.Run("Duplicate names flagged ambiguous, lowest id wins", func(t *testing.T) {
		res, err := db.ResolveSearchTerm(ctx, "Twin Oaks")
		require.NoError(t, err)
		assert.True(t, res.Ambiguous)

		again, err := db.ResolveSearchTerm(ctx, "Twin Oaks")
		require.NoError(t, err)
		assert.Equal(t, res.ID, again.ID, "resolution is deterministic")
	})

	t.Run("Unknown term", func(t *testing.T) {
		_, err := db.ResolveSearchTerm(ctx, "nowhere")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAddListingExposure(t *testing.T) {
	db, err := NewTestDB()
	require.NoError(t, err)
	defer db.Close()

	_, buildingID := seedEntities(t, db)
	ctx := context.Background()

	require.NoError(t, db.AddListingExposure(ctx, buildingID, models.KindSale, 45))
	require.NoError(t, db.AddListingExposure(ctx, buildingID, models.KindSale, 15))

	b, err := db.GetBuilding(ctx, buildingID)
	require.NoError(t, err)
	assert.Equal(t, 60.0, b.SaleExposureDays)
	assert.EqualValues(t, 2, b.SaleAdCount)
	assert.EqualValues(t, 0, b.RentAdCount)

	err = db.AddListingExposure(ctx, 9999, models.KindRent, 10)
	assert.ErrorIs(t, err, ErrNotFound)
}
