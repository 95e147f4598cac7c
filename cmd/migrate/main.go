package main

import (
	"context"
	"flag"
	"log"

	"cis-portal/internal/config"
	"cis-portal/internal/db"
	"cis-portal/internal/logger"
	"cis-portal/internal/migrate"
	"go.uber.org/zap"
)

func main() {
	var down bool
	flag.BoolVar(&down, "down", false, "Roll back the session store schema instead of applying it")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zlog, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	zlog = zlog.Named("migrate")
	defer zlog.Sync() //nolint:errcheck

	if cfg.Database.DSN == "" {
		zlog.Fatal("CIS_DATABASE_DSN is required")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		zlog.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if down {
		if err := migrate.Rollback(ctx, pool); err != nil {
			zlog.Fatal("rollback migrations", zap.Error(err))
		}
		zlog.Info("migrations rolled back")
		return
	}
	if err := migrate.Apply(ctx, pool); err != nil {
		zlog.Fatal("apply migrations", zap.Error(err))
	}
	zlog.Info("migrations applied")
}
