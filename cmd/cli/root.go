package main

import (
	"context"
	"fmt"

	"github.com/akeren/go-rest-starter/config"
	"github.com/akeren/go-rest-starter/internal/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// cliContext is shared by every subcommand; it is populated before any RunE executes.
type cliContext struct {
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	cc := &cliContext{}

	cmd := &cobra.Command{
		Use:           "cli",
		Short:         "Maintenance commands for the REST API database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cc.logger = log.NewLoggerWithJSONOutput()
			config.InitializeEnvFile(cc.logger)
		},
	}

	cmd.AddCommand(newMigrateCmd(cc))
	cmd.AddCommand(newDBCheckCmd(cc))
	cmd.AddCommand(newListTablesCmd(cc))
	cmd.AddCommand(newSeedUsersCmd(cc))

	return cmd
}

// connect opens the configured database, retrying transient failures. The returned
// function closes it.
func (cc *cliContext) connect(ctx context.Context) (*gorm.DB, func(), error) {
	db, err := config.NewDatabaseWithRetry(ctx, cc.logger, nil)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { config.CloseDatabase(db, cc.logger) }, nil
}

type commandError struct {
	operation  string
	context    string
	cause      error
	suggestion string
}

func newCommandError(operation, context string, cause error, suggestion string) error {
	return &commandError{operation: operation, context: context, cause: cause, suggestion: suggestion}
}

func (e *commandError) Error() string {
	msg := fmt.Sprintf("Failed to %s: %s\n\nError: %v", e.operation, e.context, e.cause)
	if e.suggestion != "" {
		msg += "\n\nSuggestion: " + e.suggestion
	}
	return msg
}

func (e *commandError) Unwrap() error {
	return e.cause
}
