package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sujala/deuce/internal/logger"
	"github.com/sujala/deuce/pkg/config"
	"github.com/sujala/deuce/pkg/store/metadata/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run postgres metadata store migrations",
	Long: `Apply pending schema migrations to the configured postgres
metadata store. A no-op (with a warning) when metadata.driver is
"memory", since the in-memory store has no schema.

Examples:
  # Run migrations with default config
  deuced migrate

  # Run migrations with a custom config file
  deuced migrate --config /etc/deuce/config.yaml`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if cfg.Metadata.Driver != "postgres" {
		logger.Warn("metadata.driver is not \"postgres\", nothing to migrate", logger.KeyDriver, cfg.Metadata.Driver)
		return nil
	}

	ctx := context.Background()
	pgCfg := cfg.Metadata.Postgres
	if err := postgres.RunMigrations(ctx, &pgCfg); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println("Migrations completed successfully")
	return nil
}
