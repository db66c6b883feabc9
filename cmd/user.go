package cmd

import (
	"context"
	"fmt"

	"github.com/example/resort-booking/internal/auth"
	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage admin dashboard users",
	}
	cmd.AddCommand(newUserAddCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var (
		username, password string
		admin              bool
	)

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a local user (username/password)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, true, false)
			if err != nil {
				return err
			}
			defer a.Close()

			store := a.auth()
			id, err := store.CreateUser(ctx, username, password)
			if err != nil {
				return err
			}
			if admin {
				if err := store.GrantRole(ctx, username, auth.RoleAdmin); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %q id=%d admin=%t\n", username, id, admin)
			return nil
		},
	}

	c.Flags().StringVar(&username, "username", "", "username")
	c.Flags().StringVar(&password, "password", "", "password")
	c.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("password")
	return c
}

func newRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Manage user roles",
	}
	cmd.AddCommand(newRoleGrantCmd())
	return cmd
}

func newRoleGrantCmd() *cobra.Command {
	var username, role string

	c := &cobra.Command{
		Use:   "grant",
		Short: "Grant a role to an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if auth.Role(role) != auth.RoleAdmin {
				return fmt.Errorf("unknown role %q (want %s)", role, auth.RoleAdmin)
			}
			ctx := context.Background()
			a, err := openApp(ctx, true, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.auth().GrantRole(ctx, username, auth.Role(role)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %q\n", role, username)
			return nil
		},
	}

	c.Flags().StringVar(&username, "username", "", "username")
	c.Flags().StringVar(&role, "role", string(auth.RoleAdmin), "role to grant")
	_ = c.MarkFlagRequired("username")
	return c
}
