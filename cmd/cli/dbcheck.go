package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akeren/go-rest-starter/pkg/retry"
	"github.com/spf13/cobra"
)

const dbCheckTimeout = 30 * time.Second

type serverInfo struct {
	Now      time.Time
	Database string
	User     string
	Version  string
}

func newDBCheckCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "db-check",
		Short: "Verify the database connection and print server details",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), dbCheckTimeout)
			defer cancel()

			out := cmd.OutOrStdout()

			db, closeDB, err := cc.connect(ctx)
			if err != nil {
				return newCommandError("check database", "connecting", err, strings.Join(diagnose(err), "\n  "))
			}
			defer closeDB()

			var info serverInfo
			row := db.WithContext(ctx).Raw("SELECT NOW(), current_database(), current_user, version()").Row()
			if err := row.Scan(&info.Now, &info.Database, &info.User, &info.Version); err != nil {
				return newCommandError("check database", "querying server details", err, strings.Join(diagnose(err), "\n  "))
			}

			fmt.Fprintln(out, "Database connection successful")
			fmt.Fprintf(out, "  Server time: %s\n", info.Now.Format(time.RFC3339))
			fmt.Fprintf(out, "  Database:    %s\n", info.Database)
			fmt.Fprintf(out, "  User:        %s\n", info.User)
			fmt.Fprintf(out, "  Version:     %s\n", info.Version)
			return nil
		},
	}
}

// diagnose maps a connection failure to troubleshooting hints.
func diagnose(err error) []string {
	var exhausted *retry.MaxRetriesExceededError
	if errors.As(err, &exhausted) && exhausted.LastError != nil {
		err = exhausted.LastError
	}
	msg := strings.ToLower(err.Error())

	var hints []string
	switch {
	case strings.Contains(msg, "password authentication failed"),
		strings.Contains(msg, "role") && strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "authentication"):
		hints = append(hints,
			"Check POSTGRES_USER and POSTGRES_PASSWORD (or the credentials in APP_DATABASE_URL).",
			"Make sure the role exists and is allowed to log in.",
		)
	case strings.Contains(msg, "database") && strings.Contains(msg, "does not exist"):
		hints = append(hints,
			"Check POSTGRES_DB_NAME.",
			"Create the database first, for example: createdb <name>.",
		)
	case strings.Contains(msg, "connection refused"):
		hints = append(hints,
			"Make sure PostgreSQL is running.",
			"Check POSTGRES_HOST and POSTGRES_PORT.",
		)
	}

	if len(hints) == 0 {
		hints = append(hints, "Review the database settings in your .env file.")
	}
	return hints
}
