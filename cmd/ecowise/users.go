package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecowise/ecowise/internal/auth/app"
	"github.com/ecowise/ecowise/internal/auth/domain"
	"github.com/ecowise/ecowise/internal/auth/service"
	"github.com/ecowise/ecowise/pkg/authsdk"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Administer user accounts",
}

var usersDeactivateCmd = &cobra.Command{
	Use:   "deactivate <email>",
	Short: "Deactivate an account; its tokens stop working immediately",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUsers(cmd, func(ctx context.Context, users *service.UserService) (domain.User, error) {
			return users.SetActive(ctx, args[0], false)
		})
	},
}

var usersActivateCmd = &cobra.Command{
	Use:   "activate <email>",
	Short: "Reactivate a deactivated account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUsers(cmd, func(ctx context.Context, users *service.UserService) (domain.User, error) {
			return users.SetActive(ctx, args[0], true)
		})
	},
}

var usersRoleCmd = &cobra.Command{
	Use:   "role <email> <user|admin>",
	Short: "Change the role of an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !authsdk.IsValidRole(args[1]) {
			return fmt.Errorf("role must be one of user, admin; got %q", args[1])
		}
		return withUsers(cmd, func(ctx context.Context, users *service.UserService) (domain.User, error) {
			return users.SetRole(ctx, args[0], domain.Role(args[1]))
		})
	},
}

// withUsers opens the configured store, runs fn against it and prints the
// resulting account state.
func withUsers(cmd *cobra.Command, fn func(context.Context, *service.UserService) (domain.User, error)) error {
	ctx := cmd.Context()
	cfg := app.LoadConfig()

	db, err := app.OpenMigratedStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	u, err := fn(ctx, &service.UserService{Store: db})
	if errors.Is(err, service.ErrUnknownUser) {
		return errors.New("no user registered with that email")
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\trole=%s\tactive=%t\n", u.Email, u.Role, u.IsActive)
	return nil
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersDeactivateCmd, usersActivateCmd, usersRoleCmd)
}
