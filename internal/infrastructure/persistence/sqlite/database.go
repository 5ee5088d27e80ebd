// Package sqlite provides SQLite database setup and configuration
package sqlite

import (
	"fmt"

	gormstore "github.com/alchemorsel/intake/internal/infrastructure/persistence/gorm"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupDatabase creates and migrates the SQLite database.
// An empty path opens a private in-memory database.
func SetupDatabase(dbPath string, log logger.Interface) (*gorm.DB, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	cfg := &gorm.Config{}
	if log != nil {
		cfg.Logger = log
	} else {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// SQLite has a single writer; one connection also keeps :memory: databases shared.
	sqlDB.SetMaxOpenConns(1)

	if err := gormstore.Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}
