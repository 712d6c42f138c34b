package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createProfileSnapshotsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "001_create_profile_snapshots",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS profile_snapshots (
					handle VARCHAR(30) PRIMARY KEY,
					username VARCHAR(30) NOT NULL,
					full_name VARCHAR(255),
					biography TEXT,
					followers BIGINT DEFAULT 0,
					following BIGINT DEFAULT 0,
					posts BIGINT DEFAULT 0,
					profile_pic_url TEXT,
					is_private BOOLEAN DEFAULT FALSE,
					is_verified BOOLEAN DEFAULT FALSE,
					external_url TEXT,
					recent_posts TEXT[],
					source VARCHAR(50) NOT NULL,
					generated_at TIMESTAMPTZ NOT NULL,
					created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
				);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS profile_snapshots;").Error
		},
	}
}
