// Package postgres provides PostgreSQL database connection and management
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/alchemorsel/intake/internal/infrastructure/config"
	gormstore "github.com/alchemorsel/intake/internal/infrastructure/persistence/gorm"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const slowQueryThreshold = 200 * time.Millisecond

// Open connects to PostgreSQL, configures the pool and optionally migrates the schema
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	return OpenDSN(ctx, cfg.GetDSN(), cfg.Database, log)
}

// OpenDSN connects using an explicit DSN
func OpenDSN(ctx context.Context, dsn string, dbCfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:      gormstore.NewLogger(log, "warn", slowQueryThreshold),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if dbCfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbCfg.MaxOpenConns)
	}
	if dbCfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbCfg.MaxIdleConns)
	}
	if dbCfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(dbCfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dbCfg.AutoMigrate {
		if err := gormstore.Migrate(db); err != nil {
			return nil, err
		}
	}

	log.Info("Database connection established",
		zap.String("host", dbCfg.Host),
		zap.String("database", dbCfg.Database),
		zap.Int("max_open_conns", dbCfg.MaxOpenConns),
	)

	return db, nil
}
