// Package database applies the demo schema migrations. The engine itself is
// stateless and never migrates anything at runtime; this package backs the
// seed-demo script that prepares the example databases.
package database

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/logging"
)

// MigrateTarget applies the migrations under migrationsPath to the database
// at dsn. It is idempotent: only pending migrations run.
func MigrateTarget(dsn, migrationsPath string, logger *zap.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open database: %s", logging.SanitizeError(err))
	}
	defer func() { _ = db.Close() }()

	return RunMigrations(db, migrationsPath, logger)
}

// RunMigrations executes pending migrations from the specified directory
// against an open database handle.
func RunMigrations(db *sql.DB, migrationsPath string, logger *zap.Logger) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("Failed to close migration source", zap.Error(srcErr))
		}
		if dbErr != nil {
			logger.Warn("Failed to close migration database", zap.Error(dbErr))
		}
	}()

	err = m.Up()
	if err == migrate.ErrNoChange {
		logger.Info("No migrations to apply (database up-to-date)",
			zap.String("path", migrationsPath))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	newVersion, _, _ := m.Version()
	logger.Info("Applied migrations successfully",
		zap.String("path", migrationsPath),
		zap.Uint("version", newVersion))
	return nil
}
