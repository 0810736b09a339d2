package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newListTablesCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list-tables",
		Short: "List the tables in the public schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), dbCheckTimeout)
			defer cancel()

			db, closeDB, err := cc.connect(ctx)
			if err != nil {
				return newCommandError("list tables", "connecting to the database", err, "Run 'cli db-check' to diagnose the connection.")
			}
			defer closeDB()

			tables, err := publicTables(ctx, db)
			if err != nil {
				return newCommandError("list tables", "querying information_schema", err, "")
			}

			out := cmd.OutOrStdout()
			if len(tables) == 0 {
				fmt.Fprintln(out, "No tables found in the public schema.")
				return nil
			}

			fmt.Fprintf(out, "Tables in the public schema (%d):\n", len(tables))
			for _, name := range tables {
				fmt.Fprintf(out, "  - %s\n", name)
			}
			return nil
		},
	}
}

func publicTables(ctx context.Context, db *gorm.DB) ([]string, error) {
	var tables []string
	err := db.WithContext(ctx).
		Table("information_schema.tables").
		Where("table_schema = ?", "public").
		Order("table_name").
		Pluck("table_name", &tables).Error
	return tables, err
}

