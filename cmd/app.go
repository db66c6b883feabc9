package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/example/resort-booking/internal/auth"
	"github.com/example/resort-booking/internal/booking"
	"github.com/example/resort-booking/internal/booking/memstore"
	"github.com/example/resort-booking/internal/booking/pgstore"
	"github.com/example/resort-booking/internal/catalog"
	"github.com/example/resort-booking/internal/config"
	"github.com/example/resort-booking/internal/db"
	"github.com/example/resort-booking/internal/logging"
	"github.com/example/resort-booking/internal/migrate"
	"github.com/example/resort-booking/internal/payment"
)

// app is the wiring shared by the server and the maintenance commands.
type app struct {
	cfg   config.Config
	log   *slog.Logger
	db    *db.DB
	store booking.Store
	users auth.Users
}

// openApp reads the config and connects the configured store. The memory
// store forgets everything on exit, so only the server may use it.
func openApp(ctx context.Context, migrateUp, allowMemory bool) (*app, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}

	if cfg.Store == config.StoreMemory {
		if !allowMemory {
			return nil, fmt.Errorf("this command needs STORE=%s", config.StorePostgres)
		}
		log.Warn("using in-memory store; bookings are lost on exit")
		a.store = memstore.New()
		a.users = auth.NewMemUsers()
		return a, nil
	}

	d, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if migrateUp {
		if err := migrate.Up(ctx, d); err != nil {
			d.Close()
			return nil, err
		}
	}
	a.db = d
	a.store = pgstore.New(d)
	a.users = auth.NewPGUsers(d)
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) bookings() *booking.Service {
	return booking.NewService(catalog.Default(), a.store, booking.Options{
		HoldTTL:           a.cfg.HoldTTL,
		WalkInEmailDomain: a.cfg.WalkInEmailDomain,
		Payments:          payment.NewProcessor(nil),
		Logger:            a.log,
	})
}

func (a *app) auth() *auth.Store {
	return auth.NewStore(a.users, a.cfg.CookieHashKey, a.cfg.CookieBlockKey, a.log)
}
