package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"marketpulse/server/internal/models"
)

// ErrNotFound is returned when a requested row does not exist. Callers get
// an explicit miss, never a zero-filled stub.
var ErrNotFound = errors.New("not found")

type Database struct {
	gorm *gorm.DB
	db   *sql.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	return &Database{gorm: gdb, db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}

func (d *Database) GetGorm() *gorm.DB {
	return d.gorm
}

// Scope restricts a raw-record query to one entity. The zero value is
// city-wide. BuildingIDs also covers projects, which expand to their
// building set before querying; a project that expands to zero buildings
// must set Empty, not leave the zero value, or the query silently widens
// to city-wide.
type Scope struct {
	BuildingIDs []int64
	AreaID      *int64
	Empty       bool
}

func (s Scope) clause(column string) (string, []interface{}) {
	if s.Empty {
		return " AND 1=0", nil
	}
	if len(s.BuildingIDs) > 0 {
		placeholders := make([]string, len(s.BuildingIDs))
		args := make([]interface{}, len(s.BuildingIDs))
		for i, id := range s.BuildingIDs {
			placeholders[i] = "?"
			args[i] = id
		}
		return fmt.Sprintf(" AND building_id IN (%s)", strings.Join(placeholders, ",")), args
	}
	if s.AreaID != nil {
		return " AND " + column + " = ?", []interface{}{*s.AreaID}
	}
	return "", nil
}

// GetListings returns the raw listings of one kind inside [from, to),
// scoped to an entity. Bedroom-class filtering happens in Go because the
// stored labels are free text.
func (d *Database) GetListings(ctx context.Context, kind models.Kind, scope Scope, from, to time.Time) ([]models.RawListing, error) {
	query := `
        SELECT id, kind, building_id, area_id, bedrooms, price, currency, floor_area, listed_at
        FROM raw_listings
        WHERE kind = ?
        AND price > 0
        AND listed_at >= ? AND listed_at < ?
    `
	args := []interface{}{string(kind), from, to}

	scopeSQL, scopeArgs := scope.clause("area_id")
	query += scopeSQL
	args = append(args, scopeArgs...)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.RawListing
	for rows.Next() {
		var l models.RawListing
		var buildingID, areaID sql.NullInt64
		var floorArea sql.NullFloat64

		err := rows.Scan(
			&l.ID,
			&l.Kind,
			&buildingID,
			&areaID,
			&l.Bedrooms,
			&l.Price,
			&l.Currency,
			&floorArea,
			&l.ListedAt,
		)
		if err != nil {
			return nil, err
		}

		if buildingID.Valid {
			id := buildingID.Int64
			l.BuildingID = &id
		}
		if areaID.Valid {
			id := areaID.Int64
			l.AreaID = &id
		}
		if floorArea.Valid {
			fa := floorArea.Float64
			l.FloorArea = &fa
		}

		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// GetTransactions returns the recorded transactions of one kind inside
// [from, to), scoped to an entity.
func (d *Database) GetTransactions(ctx context.Context, kind models.Kind, scope Scope, from, to time.Time) ([]models.RawTransaction, error) {
	query := `
        SELECT id, kind, building_id, area_id, bedrooms, price, floor_area, transacted_at, contract_period
        FROM raw_transactions
        WHERE kind = ?
        AND price > 0
        AND transacted_at >= ? AND transacted_at < ?
    `
	args := []interface{}{string(kind), from, to}

	scopeSQL, scopeArgs := scope.clause("area_id")
	query += scopeSQL
	args = append(args, scopeArgs...)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetRecentTransactions returns the most recent transactions for an entity,
// newest first, regardless of window. The caller filters by bedroom class
// and trims to the snapshot size.
func (d *Database) GetRecentTransactions(ctx context.Context, scope Scope, limit int) ([]models.RawTransaction, error) {
	query := `
        SELECT id, kind, building_id, area_id, bedrooms, price, floor_area, transacted_at, contract_period
        FROM raw_transactions
        WHERE price > 0
    `
	var args []interface{}

	scopeSQL, scopeArgs := scope.clause("area_id")
	query += scopeSQL
	args = append(args, scopeArgs...)

	query += " ORDER BY transacted_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]models.RawTransaction, error) {
	var txs []models.RawTransaction
	for rows.Next() {
		var tx models.RawTransaction
		var buildingID sql.NullInt64
		var floorArea sql.NullFloat64

		err := rows.Scan(
			&tx.ID,
			&tx.Kind,
			&buildingID,
			&tx.AreaID,
			&tx.Bedrooms,
			&tx.Price,
			&floorArea,
			&tx.TransactedAt,
			&tx.ContractPeriod,
		)
		if err != nil {
			return nil, err
		}

		if buildingID.Valid {
			id := buildingID.Int64
			tx.BuildingID = &id
		}
		if floorArea.Valid {
			fa := floorArea.Float64
			tx.FloorArea = &fa
		}

		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// GetBuildings returns every building, optionally restricted to one area.
func (d *Database) GetBuildings(ctx context.Context, areaID *int64) ([]models.Building, error) {
	q := d.gorm.WithContext(ctx).Order("id")
	if areaID != nil {
		q = q.Where("area_id = ?", *areaID)
	}

	var buildings []models.Building
	if err := q.Find(&buildings).Error; err != nil {
		return nil, fmt.Errorf("failed to query buildings: %w", err)
	}
	return buildings, nil
}

// GetBuilding returns one building by id, or ErrNotFound.
func (d *Database) GetBuilding(ctx context.Context, id int64) (*models.Building, error) {
	var b models.Building
	err := d.gorm.WithContext(ctx).First(&b, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetAreas returns every area in id order.
func (d *Database) GetAreas(ctx context.Context) ([]models.Area, error) {
	var areas []models.Area
	if err := d.gorm.WithContext(ctx).Order("id").Find(&areas).Error; err != nil {
		return nil, fmt.Errorf("failed to query areas: %w", err)
	}
	return areas, nil
}

// GetArea returns one area by id, or ErrNotFound.
func (d *Database) GetArea(ctx context.Context, id int64) (*models.Area, error) {
	var a models.Area
	err := d.gorm.WithContext(ctx).First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetProjectBuildingIDs returns the ids of all buildings in a project.
func (d *Database) GetProjectBuildingIDs(ctx context.Context, projectID int64) ([]int64, error) {
	var ids []int64
	err := d.gorm.WithContext(ctx).
		Model(&models.Building{}).
		Where("project_id = ?", projectID).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query project buildings: %w", err)
	}
	return ids, nil
}
