package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/modulrent/site-backend/internal/model"
	"github.com/modulrent/site-backend/internal/service"
	"github.com/spf13/cobra"
)

// ---------- create ----------

func newCreateCmd(run runner, out io.Writer, readPassword passwordFunc) *cobra.Command {
	var (
		email    string
		password string
		role     string
		as       string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin user",
		Long: `Create an admin user.

With no admin in the database this creates the first super admin. After that,
--as names an existing admin whose role limits what can be granted.`,
		Example: `  adminctl create --email root@example.com
  adminctl create --email ed@example.com --role editor --as root@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !strings.Contains(email, "@") {
				return fmt.Errorf("invalid email address: %q", email)
			}
			r, err := model.ParseRole(role)
			if err != nil {
				return err
			}
			if as == "" && r != model.RoleSuperAdmin {
				return errors.New("the first admin is always a super_admin; pass --as to create other roles")
			}

			if password == "" {
				if password, err = readPassword(); err != nil {
					return err
				}
			}

			return run(func(ctx context.Context, e *env) error {
				admin, err := createAdmin(ctx, e.users, email, password, r, as)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Created %s %q (%s)\n", admin.Role, admin.Email, admin.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")
	cmd.Flags().StringVar(&role, "role", string(model.RoleSuperAdmin), "Role to grant")
	cmd.Flags().StringVar(&as, "as", "", "Email of the existing admin performing the change")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func createAdmin(ctx context.Context, users *service.AdminUserService, email, password string, role model.Role, as string) (*model.AdminUser, error) {
	if as == "" {
		admin, err := users.Setup(ctx, email, password)
		if errors.Is(err, service.ErrSetupClosed) {
			return nil, errors.New("an admin already exists; pass --as <email> to act as one")
		}
		return admin, err
	}

	actor, err := users.GetByEmail(ctx, as)
	if err != nil {
		return nil, fmt.Errorf("--as %s: %w", as, err)
	}
	if !actor.IsActive {
		return nil, fmt.Errorf("--as %s: admin is inactive", as)
	}
	return users.Create(ctx, actor.Principal(), email, password, role)
}

// ---------- list ----------

func newListCmd(run runner, out io.Writer) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all admin users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, e *env) error {
				admins, err := e.users.List(ctx)
				if err != nil {
					return err
				}
				return printAdmins(out, admins, jsonOutput)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func printAdmins(out io.Writer, admins []model.AdminUser, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(admins)
	}

	if len(admins) == 0 {
		fmt.Fprintln(out, "No admin users. Use 'adminctl create' to create one.")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-30s  %-12s  %-6s  %s\n", "ID", "EMAIL", "ROLE", "ACTIVE", "LAST LOGIN")
	for _, a := range admins {
		active := "yes"
		if !a.IsActive {
			active = "no"
		}
		last := "never"
		if a.LastLogin != nil {
			last = a.LastLogin.UTC().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(out, "%-36s  %-30s  %-12s  %-6s  %s\n", a.ID, a.Email, a.Role, active, last)
	}
	return nil
}

// ---------- activate / deactivate ----------

func newSetActiveCmd(run runner, out io.Writer, active bool) *cobra.Command {
	var email string

	use, short := "deactivate", "Deactivate an admin; their sessions stop working immediately"
	if active {
		use, short = "activate", "Reactivate an admin"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, e *env) error {
				admin, err := e.users.SetActiveByEmail(ctx, email, active)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: active=%t\n", admin.Email, admin.IsActive)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
