package main

import (
	"context"
	"fmt"
	"time"

	"ms-storefront/internal/config"
	"ms-storefront/internal/database/migrations"
	"ms-storefront/internal/logger"
	"ms-storefront/internal/order/db"

	"github.com/uptrace/bun"
)

// connectDatabase opens the store and retries the first ping while the database starts up.
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	bunDB, err := db.Open(cfg.DSN)
	if err != nil {
		return nil, err
	}
	bunDB.SetMaxOpenConns(cfg.MaxOpenConns)
	bunDB.SetMaxIdleConns(cfg.MaxIdleConns)
	bunDB.SetConnMaxLifetime(cfg.MaxLifetime)

	const maxRetries = 5
	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to database (attempt %d/%d)", i+1, maxRetries))
		if err = bunDB.PingContext(ctx); err == nil {
			log.Info("DATABASE", "✅ Database connection successful")
			return bunDB, nil
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to database: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	bunDB.Close()
	return nil, fmt.Errorf("database unreachable after %d attempts: %w", maxRetries, err)
}

// prepareSchema runs the postgres migrations, or creates the sqlite tables in place.
func prepareSchema(ctx context.Context, cfg config.DatabaseConfig, store *db.DB, log *logger.Logger) error {
	if !cfg.AutoMigrate {
		log.Info("MIGRATE", "AUTO_MIGRATE=false, leaving schema untouched")
		return nil
	}

	if db.IsPostgres(cfg.DSN) {
		runner := migrations.NewRunner(cfg.DSN, migrations.DefaultOptions(), log)
		defer func() {
			if err := runner.Close(); err != nil {
				log.Warn("MIGRATE", err.Error())
			}
		}()
		return runner.RunMigrations()
	}

	if err := store.CreateSchema(ctx); err != nil {
		return fmt.Errorf("create sqlite schema: %w", err)
	}
	log.LogDatabase("CREATE", "orders", "SQLite schema ready")
	return nil
}
