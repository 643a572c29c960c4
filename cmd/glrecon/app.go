package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jask/glrecon/internal/config"
	"github.com/jask/glrecon/internal/database"
	"github.com/jask/glrecon/internal/database/repository"
	"github.com/jask/glrecon/internal/httpapi"
	"github.com/jask/glrecon/internal/lock"
	"github.com/jask/glrecon/internal/logging"
	"github.com/jask/glrecon/internal/service"
)

// app is the wired process shared by every subcommand.
type app struct {
	cfg   config.Config
	log   *logrus.Logger
	db    *sql.DB
	redis *redis.Client
	svc   httpapi.Services
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	db, err := database.OpenMigrated(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	a := &app{cfg: cfg, log: log, db: db}

	var locker lock.Locker = lock.NewLocal()
	if cfg.Lock.RedisAddr != "" {
		rl, client, err := lock.Dial(ctx, cfg.Lock.RedisAddr, cfg.Lock.TTL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("redis lock: %w", err)
		}
		locker, a.redis = rl, client
	}

	store := repository.NewStore(db)
	a.svc = httpapi.Services{
		Reconciler:  service.NewReconciler(store, locker, log),
		Ingest:      service.NewIngestService(store, cfg.Import.TargetAccounts, cfg.Import.DefaultEncoding, cfg.Import.PreviewTTL, log),
		Forecasts:   &service.ForecastService{Store: store},
		Maintenance: &service.MaintenanceService{Store: store, Locker: locker, Log: log},
	}
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.db.Close()
}
