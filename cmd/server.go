package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/resort-booking/internal/auth"
	"github.com/example/resort-booking/internal/web"
	"github.com/spf13/cobra"
)

func newServerCmd() *cobra.Command {
	var (
		migrateUp     bool
		adminUser     string
		adminPassword string
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the booking site and admin dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := openApp(ctx, migrateUp, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.cfg.RequireSessionKeys(); err != nil {
				return err
			}

			// read after openApp so a .env file can supply them
			if adminUser == "" {
				adminUser, adminPassword = os.Getenv("ADMIN_USERNAME"), os.Getenv("ADMIN_PASSWORD")
			}
			authStore := a.auth()
			if adminUser != "" {
				if err := seedAdmin(ctx, authStore, adminUser, adminPassword); err != nil {
					return err
				}
				a.log.Info("admin account ready", "username", adminUser)
			} else if a.db == nil {
				a.log.Warn("no admin account in the in-memory store; set ADMIN_USERNAME and ADMIN_PASSWORD to sign in")
			}

			ws := &web.Server{
				Booking: a.bookings(),
				Auth:    authStore,
				Log:     a.log,
				Limiter: web.NewRateLimiter(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst),
				BaseURL: a.cfg.BaseURL,
			}
			return web.Start(ctx, a.cfg.ListenAddr, ws.Routes(), a.log)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	cmd.Flags().StringVar(&adminUser, "admin-username", "", "create or promote this admin account on startup (default $ADMIN_USERNAME)")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "password for --admin-username when it is created (default $ADMIN_PASSWORD)")
	return cmd
}

// seedAdmin makes sure username exists and holds the admin role. An
// existing account keeps its password.
func seedAdmin(ctx context.Context, s *auth.Store, username, password string) error {
	if _, err := s.CreateUser(ctx, username, password); err != nil && !errors.Is(err, auth.ErrUserExists) {
		return fmt.Errorf("seed admin: %w", err)
	}
	return s.GrantRole(ctx, username, auth.RoleAdmin)
}
