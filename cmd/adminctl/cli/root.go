// Package cli implements adminctl, the operator tool for admin accounts and
// sessions. It talks to Postgres directly and bypasses the panel's role
// rules, so it is meant for people who already hold database credentials.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/modulrent/site-backend/internal/config"
	"github.com/modulrent/site-backend/internal/database"
	"github.com/modulrent/site-backend/internal/logger"
	"github.com/modulrent/site-backend/internal/repository"
	"github.com/modulrent/site-backend/internal/service"
	"github.com/modulrent/site-backend/internal/worker"
	"github.com/spf13/cobra"
)

// env is what every subcommand runs against.
type env struct {
	users  *service.AdminUserService
	purger worker.SessionPurger
	close  func()
}

type connectFunc func(ctx context.Context, verbose bool) (*env, error)

// Execute builds the command tree against the configured database and runs it.
func Execute() error {
	return newRootCmd(connectPostgres, os.Stdout, promptPassword).Execute()
}

func newRootCmd(connect connectFunc, out io.Writer, readPassword passwordFunc) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "adminctl",
		Short: "Manage admin accounts and sessions",
		Long: `adminctl manages admin panel accounts and sessions directly in the database.

Use it to create the first super admin, recover a locked-out account, or
force every session of an admin to end.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log service activity to stderr")

	run := func(fn func(ctx context.Context, e *env) error) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		e, err := connect(ctx, verbose)
		if err != nil {
			return err
		}
		defer e.close()
		return fn(ctx, e)
	}

	cmd.AddCommand(newCreateCmd(run, out, readPassword))
	cmd.AddCommand(newListCmd(run, out))
	cmd.AddCommand(newSetActiveCmd(run, out, false))
	cmd.AddCommand(newSetActiveCmd(run, out, true))
	cmd.AddCommand(newRevokeSessionsCmd(run, out))
	cmd.AddCommand(newPurgeSessionsCmd(run, out))

	return cmd
}

type runner func(fn func(ctx context.Context, e *env) error) error

func connectPostgres(ctx context.Context, verbose bool) (*env, error) {
	cfg := config.Load()

	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.New(os.Stderr, "adminctl", level, "pretty")

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	admins := repository.NewAdminRepository(pool)
	sessions := repository.NewSessionRepository(pool)
	auth := service.NewAuthService(admins, sessions, service.AuthConfig{
		Secret:     cfg.JWTSecret,
		SessionTTL: cfg.SessionTTL,
		BcryptCost: cfg.BcryptCost,
	}, log)

	return &env{
		users:  service.NewAdminUserService(admins, auth, log),
		purger: sessions,
		close:  pool.Close,
	}, nil
}
