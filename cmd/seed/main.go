package main

import (
	"context"
	"flag"
	"log"

	"cis-portal/internal/app"
	"cis-portal/internal/config"
	"cis-portal/internal/logger"
	"cis-portal/internal/seed"
	"go.uber.org/zap"
)

func main() {
	var username, password string
	flag.StringVar(&username, "username", "", "Officer username; empty reuses the stored session")
	flag.StringVar(&password, "password", "", "Officer password")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zlog, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	zlog = zlog.Named("seed")
	defer zlog.Sync() //nolint:errcheck

	ctx := context.Background()
	portal, err := app.Build(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("build portal", zap.Error(err))
	}
	defer portal.Close()

	if err := portal.SignIn(ctx, username, password); err != nil {
		zlog.Fatal("sign in", zap.Error(err))
	}

	created, err := seed.Apply(ctx, portal.Products, zlog)
	if err != nil {
		zlog.Fatal("seed apply", zap.Error(err))
	}
	zlog.Info("seed applied", zap.Int("created", created))
}
