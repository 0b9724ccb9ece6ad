package database

import (
	"fmt"
	"log/slog"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the sqlite working store at path and brings the schema up
// to date. Use "file::memory:?cache=shared" for a purely in-memory store.
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := GetMigrator(db).Migrate(); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// GetMigrator returns the schema migrator. InitSchema lets a clean database
// skip the incremental migrations and create the latest state directly.
func GetMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	migrator := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "0",
			Migrate: func(txn *gorm.DB) error {
				return txn.AutoMigrate(&Session{})
			},
		},
	})

	migrator.InitSchema(func(txn *gorm.DB) error {
		slog.Info("clean database detected, running full schema initialization")
		return txn.AutoMigrate(&Session{})
	})

	return migrator
}
