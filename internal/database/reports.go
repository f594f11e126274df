package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketpulse/server/internal/bedrooms"
	"marketpulse/server/internal/models"
)

// UpsertReport writes a report row, overwriting any existing row for the
// same (entity_type, entity_id, bedroom_class). Recalculation never appends.
func (d *Database) UpsertReport(ctx context.Context, report *models.EntityReport) error {
	err := d.gorm.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "entity_type"},
			{Name: "entity_id"},
			{Name: "bedroom_class"},
		},
		UpdateAll: true,
	}).Create(report).Error
	if err != nil {
		return fmt.Errorf("failed to upsert report: %w", err)
	}
	return nil
}

// ReportExists reports whether a row already exists for the key. Used to
// tell created from updated in recalculation progress.
func (d *Database) ReportExists(ctx context.Context, entityType models.EntityType, entityID int64, class bedrooms.Class) (bool, error) {
	var count int64
	err := d.gorm.WithContext(ctx).
		Model(&models.EntityReport{}).
		Where("entity_type = ? AND entity_id = ? AND bedroom_class = ?", entityType, entityID, class).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetReport returns the latest report for (entity, class), or ErrNotFound.
func (d *Database) GetReport(ctx context.Context, entityType models.EntityType, entityID int64, class bedrooms.Class) (*models.EntityReport, error) {
	var report models.EntityReport
	err := d.gorm.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND bedroom_class = ?", entityType, entityID, class).
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// GetBuildingReportsByArea returns the building-level reports for one area
// and class, the inputs of the area's by-building aggregate.
func (d *Database) GetBuildingReportsByArea(ctx context.Context, areaID int64, class bedrooms.Class) ([]models.EntityReport, error) {
	var reports []models.EntityReport
	err := d.gorm.WithContext(ctx).
		Joins("JOIN buildings ON buildings.id = entity_reports.entity_id").
		Where("entity_reports.entity_type = ? AND entity_reports.bedroom_class = ? AND buildings.area_id = ?",
			models.EntityBuilding, class, areaID).
		Order("entity_reports.entity_id").
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query building reports: %w", err)
	}
	return reports, nil
}

// GetReportsByType returns every report of one entity type and class, the
// inputs of the city's by-building aggregate.
func (d *Database) GetReportsByType(ctx context.Context, entityType models.EntityType, class bedrooms.Class) ([]models.EntityReport, error) {
	var reports []models.EntityReport
	err := d.gorm.WithContext(ctx).
		Where("entity_type = ? AND bedroom_class = ?", entityType, class).
		Order("entity_id").
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	return reports, nil
}

// InsertQueryLog persists one immutable comparison-query row.
func (d *Database) InsertQueryLog(ctx context.Context, log *models.QueryLog) error {
	if err := d.gorm.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to insert query log: %w", err)
	}
	return nil
}

// GetQueryLogs returns the most recent persisted comparison queries.
func (d *Database) GetQueryLogs(ctx context.Context, limit int) ([]models.QueryLog, error) {
	var logs []models.QueryLog
	err := d.gorm.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	return logs, nil
}
