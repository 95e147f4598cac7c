package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cis-portal/internal/app"
	"cis-portal/internal/config"
	"cis-portal/internal/httpserver"
	"cis-portal/internal/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zlog, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	ctx := context.Background()
	portal, err := app.Build(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("build portal", zap.Error(err))
	}
	defer portal.Close()

	srv := httpserver.New(cfg.HTTP.Addr, zlog.Named("http"), portal.ServerDeps())

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !app.IsServerClosed(err) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		zlog.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		zlog.Error("server error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	} else {
		zlog.Info("server stopped")
	}
}
