package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/portalback/pkg/config"
	"github.com/portalback/pkg/database"
	"github.com/portalback/pkg/lifecycle"
	"github.com/portalback/pkg/logger"
	"github.com/portalback/services/portal/internal/model"
	"github.com/portalback/services/portal/internal/seed"
	"github.com/portalback/services/portal/internal/server"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("portal exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	ctx := context.Background()

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	rdb, err := database.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		_ = database.Close(db)
		return err
	}

	srv, err := server.New(server.Deps{
		Config: cfg,
		DB:     db,
		Cache:  database.NewCache(rdb, "portal:erp:price"),
		Log:    log,
	})
	if err != nil {
		_ = rdb.Close()
		_ = database.Close(db)
		return err
	}

	return lifecycle.New(cfg.App.Name).
		Addr(cfg.Server.HTTP.Addr()).
		App(srv.App).
		Logger(log).
		OnStart(func(ctx context.Context, _ *lifecycle.Service) error {
			if cfg.Database.AutoMigrate {
				if err := db.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				log.Info("database migrated")
			}
			if cfg.Seed.Enabled {
				if _, err := seed.Run(ctx, db, cfg.Tenant, cfg.Seed, log); err != nil {
					return fmt.Errorf("seed: %w", err)
				}
			}
			return nil
		}).
		OnReady(func(context.Context, *lifecycle.Service) error {
			log.Info("portal ready",
				zap.String("addr", cfg.Server.HTTP.Addr()),
				zap.String("env", cfg.App.Env),
				zap.Bool("erp", srv.ERP != nil),
			)
			return nil
		}).
		OnStop(func(context.Context, *lifecycle.Service) error {
			return database.Close(db)
		}).
		OnStop(func(context.Context, *lifecycle.Service) error {
			return rdb.Close()
		}).
		Run(ctx)
}
