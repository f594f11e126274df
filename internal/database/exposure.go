package database

import (
	"context"
	"fmt"

	"marketpulse/server/internal/models"
)

// AddListingExposure atomically folds one ingested ad into a building's
// exposure accumulators. Owned by the ingestion pipeline; the statistics
// engine only ever reads the accumulated values.
func (d *Database) AddListingExposure(ctx context.Context, buildingID int64, kind models.Kind, exposureDays float64) error {
	var query string
	switch kind {
	case models.KindSale:
		query = `
            UPDATE buildings
            SET sale_exposure_days = sale_exposure_days + ?,
                sale_ad_count = sale_ad_count + 1
            WHERE id = ?
        `
	case models.KindRent:
		query = `
            UPDATE buildings
            SET rent_exposure_days = rent_exposure_days + ?,
                rent_ad_count = rent_ad_count + 1
            WHERE id = ?
        `
	default:
		return fmt.Errorf("unknown listing kind: %s", kind)
	}

	result, err := d.db.ExecContext(ctx, query, exposureDays, buildingID)
	if err != nil {
		return fmt.Errorf("failed to update exposure: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
