package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"videofinder-bot/internal/storage"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the sqlite schema",
	}

	migrateCmd.AddCommand(newMigrateStepCommand(ctx, "up", "Apply pending migrations", (*storage.SQLite).Migrate))
	migrateCmd.AddCommand(newMigrateStepCommand(ctx, "down", "Roll back the last migration", (*storage.SQLite).MigrateDown))
	migrateCmd.AddCommand(newMigrateStepCommand(ctx, "status", "Print migration status", (*storage.SQLite).MigrationStatus))

	return migrateCmd
}

func newMigrateStepCommand(ctx *commandContext, use, short string, step func(*storage.SQLite, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != "" && cfg.Storage.Driver != storage.DriverSQLite {
				return errors.New("migrations only apply to the sqlite store")
			}
			// opened without migrating so "down" and "status" see the real state
			db, err := storage.NewSQLite(cmd.Context(), cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer db.Close()
			return step(db, cmd.Context())
		},
	}
}
