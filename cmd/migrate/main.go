package main

// Apply database migrations:
//   go run ./cmd/migrate up
//   go run ./cmd/migrate down
//   go run ./cmd/migrate version

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hemotwin-backend/internal/shared/config"
	"hemotwin-backend/internal/shared/storage/db"
	"hemotwin-backend/internal/shared/telemetry"
)

func main() {
	telemetry.Init()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the Postgres schema",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		withDB("up", "Apply all pending migrations", func(ctx context.Context, sqlDB *sql.DB) error {
			return db.RunMigrations(ctx, sqlDB)
		}),
		withDB("down", "Roll back the most recent migration", db.RollbackMigration),
		withDB("version", "Print the current schema version", func(ctx context.Context, sqlDB *sql.DB) error {
			version, err := db.MigrationVersion(ctx, sqlDB)
			if err != nil {
				return err
			}
			fmt.Println(version)
			return nil
		}),
	)
	return root
}

func withDB(use, short string, run func(context.Context, *sql.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			ctx := cmd.Context()
			sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer sqlDB.Close()
			if err := run(ctx, sqlDB); err != nil {
				return fmt.Errorf("migrate %s: %w", use, err)
			}
			telemetry.Info("migrate.done", map[string]any{"command": use})
			return nil
		},
	}
}
