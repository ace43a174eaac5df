package migrations

import (
	"embed"
	"errors"
	"fmt"

	"ms-storefront/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var embedded embed.FS

// MigrateOptions defines configuration options for migration
type MigrateOptions struct {
	// MigrationsDir overrides the embedded scripts with a directory on disk
	MigrationsDir string
	// AutoMigrate determines whether to run migrations automatically on startup
	AutoMigrate bool
}

// DefaultOptions returns the default migration options
func DefaultOptions() MigrateOptions {
	return MigrateOptions{AutoMigrate: true}
}

// Runner applies the postgres schema over its own connection, so closing it
// leaves the application's pool alone. SQLite deployments use bun's CreateSchema instead.
type Runner struct {
	dsn      string
	options  MigrateOptions
	logger   *logger.Logger
	migrator *migrate.Migrate
}

// NewRunner creates a new migration runner
func NewRunner(dsn string, opts MigrateOptions, log *logger.Logger) *Runner {
	return &Runner{
		dsn:     dsn,
		options: opts,
		logger:  log,
	}
}

// Source returns the embedded migration scripts.
func Source() (source.Driver, error) {
	d, err := iofs.New(embedded, "sql")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return d, nil
}

// Initialize prepares the migration system
func (r *Runner) Initialize() error {
	var migrator *migrate.Migrate
	var err error
	if r.options.MigrationsDir != "" {
		migrator, err = migrate.New(fmt.Sprintf("file://%s", r.options.MigrationsDir), r.dsn)
	} else {
		var src source.Driver
		if src, err = Source(); err == nil {
			migrator, err = migrate.NewWithSourceInstance("iofs", src, r.dsn)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	r.migrator = migrator
	return nil
}

// RunMigrations runs all pending migrations, repairing a dirty version first.
func (r *Runner) RunMigrations() error {
	if r.migrator == nil {
		if err := r.Initialize(); err != nil {
			return err
		}
	}

	version, dirty, err := r.migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		r.logger.Warn("MIGRATE", fmt.Sprintf("Detected dirty migration at version %d, forcing it clean", version))
		if err := r.migrator.Force(int(version)); err != nil {
			return fmt.Errorf("failed to fix dirty migration: %w", err)
		}
	}

	if err := r.migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, err = r.migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	r.logger.Info("MIGRATE", fmt.Sprintf("Current schema version: %d", version))
	return nil
}

// MigrateDown rolls back all migrations
func (r *Runner) MigrateDown() error {
	if r.migrator == nil {
		if err := r.Initialize(); err != nil {
			return err
		}
	}

	if err := r.migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Close frees resources associated with the migrator
func (r *Runner) Close() error {
	if r.migrator != nil {
		sourceErr, databaseErr := r.migrator.Close()
		if sourceErr != nil {
			return fmt.Errorf("error closing migrator source: %w", sourceErr)
		}
		if databaseErr != nil {
			return fmt.Errorf("error closing migrator database: %w", databaseErr)
		}
	}
	return nil
}
