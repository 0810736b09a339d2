package main

import (
	"context"
	"time"

	"github.com/akeren/go-rest-starter/pkg/migrations"
	"github.com/akeren/go-rest-starter/pkg/utils"
	"github.com/spf13/cobra"
)

const migrationTimeout = 5 * time.Minute

type migrateOptions struct {
	dir   string
	steps int
}

func newMigrateCmd(cc *cliContext) *cobra.Command {
	opts := &migrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back SQL migrations",
	}
	cmd.PersistentFlags().StringVar(&opts.dir, "dir", "", "Migrations directory (default $MIGRATIONS_DIR or ./migrations)")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), cc, opts, "up")
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (all of them unless --steps is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), cc, opts, "down")
		},
	}
	down.Flags().IntVar(&opts.steps, "steps", 1, "Number of migrations to roll back; 0 rolls back everything")

	cmd.AddCommand(up, down)
	return cmd
}

func runMigrate(parent context.Context, cc *cliContext, opts *migrateOptions, direction string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, migrationTimeout)
	defer cancel()

	dir := opts.dir
	if dir == "" {
		dir = utils.GetEnvTrimmedOrDefault("MIGRATIONS_DIR", "migrations")
	}

	db, closeDB, err := cc.connect(ctx)
	if err != nil {
		return newCommandError("migrate "+direction, "connecting to the database", err, "Run 'cli db-check' to diagnose the connection.")
	}
	defer closeDB()

	sqlDB, err := db.DB()
	if err != nil {
		return newCommandError("migrate "+direction, "getting the SQL handle", err, "")
	}

	cfg := migrations.Config{Dir: dir, Logger: cc.logger}
	if direction == "up" {
		err = migrations.Up(ctx, sqlDB, cfg)
	} else {
		err = migrations.Down(ctx, sqlDB, cfg, opts.steps)
	}
	if err != nil {
		return newCommandError("migrate "+direction, "applying migrations from "+dir, err, "Check the migration files and the schema_migrations table for a dirty version.")
	}

	return nil
}
