// Package migrations holds the versioned schema of the snapshot store.
package migrations

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// TableName records which migrations have been applied.
const TableName = "profile_schema_migrations"

var options = &gormigrate.Options{
	TableName:                 TableName,
	IDColumnName:              "id",
	IDColumnSize:              255,
	UseTransaction:            true,
	ValidateUnknownMigrations: false,
}

// Migrations returns every migration in apply order.
func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		createProfileSnapshotsTable(),
		addFetchCount(),
	}
}

// Run applies all pending migrations.
func Run(db *gorm.DB) error {
	if err := gormigrate.New(db, options, Migrations()).Migrate(); err != nil {
		return fmt.Errorf("migrating snapshot schema: %w", err)
	}

	return nil
}

// Rollback reverts the most recently applied migration.
func Rollback(db *gorm.DB) error {
	if err := gormigrate.New(db, options, Migrations()).RollbackLast(); err != nil {
		return fmt.Errorf("rolling back snapshot schema: %w", err)
	}

	return nil
}
