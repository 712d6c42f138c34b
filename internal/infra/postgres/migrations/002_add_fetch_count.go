package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// addFetchCount tracks how often each handle was refreshed and indexes the
// source column for per-source reporting.
func addFetchCount() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "002_add_fetch_count",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				ALTER TABLE profile_snapshots
				ADD COLUMN IF NOT EXISTS fetch_count BIGINT DEFAULT 1
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_profile_snapshots_source
				ON profile_snapshots(source)
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			_ = tx.Exec(`DROP INDEX IF EXISTS idx_profile_snapshots_source`).Error

			return tx.Exec(`ALTER TABLE profile_snapshots DROP COLUMN IF EXISTS fetch_count`).Error
		},
	}
}
