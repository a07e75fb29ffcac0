package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/resy-sniper/internal/config"
	"github.com/example/resy-sniper/internal/db"
	"github.com/example/resy-sniper/internal/engine"
	"github.com/example/resy-sniper/internal/logging"
	"github.com/example/resy-sniper/internal/migrate"
	"github.com/example/resy-sniper/internal/notify"
	"github.com/example/resy-sniper/internal/provider"
	"github.com/example/resy-sniper/internal/store"
)

// deps bundles the wiring every command needs.
type deps struct {
	cfg   config.Config
	log   *zap.Logger
	db    *db.DB
	store *store.Store
}

func openDeps(ctx context.Context) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	d, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if err := migrate.Up(ctx, d); err != nil {
		d.Close()
		return nil, err
	}

	st := store.New(d, store.Defaults{
		TimeWindowMinutes:    cfg.TimeWindowMinutes,
		MaxAttempts:          cfg.MaxAttempts,
		PartySize:            cfg.DefaultPartySize,
		AutoResolveConflicts: cfg.AutoResolveConflicts,
	})
	return &deps{cfg: cfg, log: logger, db: d, store: st}, nil
}

func (d *deps) close() {
	_ = d.log.Sync()
	d.db.Close()
}

func (d *deps) newEngine() (*engine.Engine, error) {
	prov, err := provider.FromConfig(d.cfg, d.log)
	if err != nil {
		return nil, err
	}
	notifier := notify.New(d.cfg, d.log)
	return engine.New(d.store, prov, notifier, engine.Options{
		PollInterval: d.cfg.PollInterval(),
		Logger:       d.log,
	}), nil
}
