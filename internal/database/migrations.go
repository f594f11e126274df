package database

import (
	"fmt"

	"marketpulse/server/internal/models"
)

func (d *Database) RunMigrations() error {
	err := d.gorm.AutoMigrate(
		&models.RawListing{},
		&models.RawTransaction{},
		&models.Building{},
		&models.Project{},
		&models.Area{},
		&models.EntityReport{},
		&models.QueryLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Covering indexes for the window scans
	_, err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_listings_window
		ON raw_listings(kind, listed_at);
	`)
	if err != nil {
		return err
	}

	_, err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_transactions_window
		ON raw_transactions(kind, transacted_at);
	`)
	if err != nil {
		return err
	}

	return nil
}
