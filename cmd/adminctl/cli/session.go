package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func newRevokeSessionsCmd(run runner, out io.Writer) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "revoke-sessions",
		Short: "End every session of an admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, e *env) error {
				n, err := e.users.RevokeSessionsByEmail(ctx, email)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Revoked %d session(s) for %s\n", n, email)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newPurgeSessionsCmd(run runner, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-sessions",
		Short: "Delete expired session rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, e *env) error {
				n, err := e.purger.PurgeExpired(ctx, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Purged %d expired session(s)\n", n)
				return nil
			})
		},
	}
}
