package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flor-ldlse/feedback-bot/internal/config"
	"github.com/flor-ldlse/feedback-bot/internal/repo/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations (same as migrate up)",
	RunE:  runMigrateUp,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrateUp,
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Storage.Driver != config.DriverPostgres {
		return fmt.Errorf("migrations only apply to the %s driver, got %q", config.DriverPostgres, cfg.Storage.Driver)
	}

	pool, err := postgres.NewPool(cmd.Context(), cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.Migrate(cmd.Context(), pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "migrate up: ok")
	return nil
}
