package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/akeren/go-rest-starter/domain/user"
	"github.com/akeren/go-rest-starter/internal/log"
	"github.com/akeren/go-rest-starter/internal/models"
	"github.com/akeren/go-rest-starter/pkg/constants"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type seedOptions struct {
	count int
	out   string
}

type seededCredential struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func newSeedUsersCmd(cc *cliContext) *cobra.Command {
	opts := &seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed-users",
		Short: "Create test users and write their credentials to a CSV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.count <= 0 {
				return newCommandError("seed users", "validating flags", fmt.Errorf("--count must be positive, got %d", opts.count), "")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), migrationTimeout)
			defer cancel()

			db, closeDB, err := cc.connect(ctx)
			if err != nil {
				return newCommandError("seed users", "connecting to the database", err, "Run 'cli db-check' to diagnose the connection.")
			}
			defer closeDB()

			created, err := seedUsers(ctx, user.NewUserRepository(db), cc.logger, opts.count)
			if err != nil {
				return newCommandError("seed users", "creating users", err, "Run 'cli migrate up' if the users table is missing.")
			}

			if err := writeCredentialsFile(opts.out, created); err != nil {
				return newCommandError("seed users", "writing "+opts.out, err, "Check that the output directory exists and is writable.")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %d of %d users; credentials written to %s\n", len(created), opts.count, opts.out)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.count, "count", 50, "Number of users to create")
	cmd.Flags().StringVar(&opts.out, "out", "user_credentials.csv", "CSV file receiving the generated credentials")

	return cmd
}

// seedUsers creates user1..userN, skipping any whose email is already registered.
func seedUsers(ctx context.Context, repo user.UserRepository, logger *log.Logger, count int) ([]seededCredential, error) {
	title := cases.Title(language.English)
	created := make([]seededCredential, 0, count)

	for i := 1; i <= count; i++ {
		n := strconv.Itoa(i)
		username := "user" + n
		cred := seededCredential{
			Email:     username + "@example.com",
			Password:  "Pass123" + n,
			FirstName: title.String(username),
			LastName:  "Test" + n,
		}

		exists, err := repo.ExistsByEmail(ctx, cred.Email)
		if err != nil {
			return created, err
		}
		if exists {
			logger.Info("User already exists; skipping", "email", cred.Email)
			continue
		}

		hashed, err := user.HashPassword(cred.Password)
		if err != nil {
			return created, err
		}

		_, err = repo.Create(ctx, &models.User{
			Name:     cred.FirstName + " " + cred.LastName,
			Username: username,
			Email:    cred.Email,
			Password: hashed,
			Roles:    []string{constants.RoleUser},
		})
		if errors.Is(err, user.ErrDuplicateUser) {
			logger.Warn("Username already taken; skipping", "username", username)
			continue
		}
		if err != nil {
			return created, err
		}

		created = append(created, cred)
	}

	return created, nil
}

func writeCredentialsFile(path string, creds []seededCredential) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeCredentials(f, creds); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCredentials(w io.Writer, creds []seededCredential) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Email", "Password", "FirstName", "LastName"}); err != nil {
		return err
	}
	for _, c := range creds {
		if err := cw.Write([]string{c.Email, c.Password, c.FirstName, c.LastName}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
