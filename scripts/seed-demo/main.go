// seed-demo creates the demo schemas and seed data in the configured target
// databases by applying the migrations under migrations/<target-name>.
//
// Each configured postgres target whose name has a matching migrations
// directory gets migrated; targets without one are skipped. Safe to re-run:
// only pending migrations apply.
//
// Usage: go run ./scripts/seed-demo
//
// Configuration comes from config.yaml / environment, same as the engine.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/config"
	"github.com/datasage-io/datasage-engine/pkg/database"
	"github.com/datasage-io/datasage-engine/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed-demo: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("dev")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if len(cfg.Databases) == 0 {
		return fmt.Errorf("no database targets configured")
	}

	seeded := 0
	for _, target := range cfg.Databases {
		path := filepath.Join("migrations", target.Name)
		if _, err := os.Stat(path); err != nil {
			logger.Info("No migrations directory for target, skipping",
				zap.String("target", target.Name))
			continue
		}
		if target.Driver != "postgres" {
			logger.Warn("Demo migrations only support postgres targets, skipping",
				zap.String("target", target.Name),
				zap.String("driver", target.Driver))
			continue
		}

		logger.Info("Migrating target", zap.String("target", target.Name))
		if err := database.MigrateTarget(target.DSN, path, logger); err != nil {
			return fmt.Errorf("migrate %s: %w", target.Name, err)
		}
		seeded++
	}

	fmt.Printf("Seeded %d of %d configured targets\n", seeded, len(cfg.Databases))
	return nil
}
