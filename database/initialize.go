package database

import (
	"context"
	"os"
	"time"

	"blog-api/config"

	"github.com/umakantv/go-utils/db"
	"github.com/umakantv/go-utils/logger"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// InitializeDatabase opens the configured backend. A store that cannot be
// reached at startup is fatal.
func InitializeDatabase(cfg *config.Config) Store {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	var (
		store Store
		err   error
	)

	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		// Database configuration for SQLite
		dbConn := db.GetDBConnection(db.DatabaseConfig{
			DRIVER: "sqlite3",
			DB:     cfg.DatabaseURI,
		})
		if err = MigrateSQLite(dbConn, cfg.MigrationsDir); err != nil {
			logger.Error("Error while running migration", zap.String("dir", cfg.MigrationsDir), zap.Error(err))
			os.Exit(1)
		}
		store = NewSQLiteStore(dbConn)
	default:
		store, err = NewMongoStore(ctx, cfg.DatabaseURI, cfg.DatabaseName)
	}

	if err != nil {
		logger.Error("Error while connecting to database", zap.String("driver", cfg.DatabaseDriver), zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Database initialized successfully", zap.String("driver", cfg.DatabaseDriver))
	return store
}
