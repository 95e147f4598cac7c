package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"cis-portal/internal/app"
	"cis-portal/internal/config"
	"cis-portal/internal/csvexport"
	"cis-portal/internal/logger"
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
	zlog = zlog.Named("export")
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

	path, err := portal.CustomerService.ExportCSV(ctx)
	if err != nil {
		zlog.Fatal("export customers", zap.Error(err))
	}

	f, err := os.Open(path)
	if err != nil {
		zlog.Fatal("open export", zap.Error(err))
	}
	defer f.Close()

	rows, err := csvexport.Read(f)
	if err != nil {
		zlog.Fatal("read export", zap.Error(err))
	}
	summary := csvexport.Summarize(rows, time.Now())

	fmt.Printf("Saved %s\n", path)
	fmt.Printf("Customers: %d (active %d, expired %d)\n", summary.Rows, summary.Active, summary.Expired)
	for _, name := range summary.Products() {
		fmt.Printf("  %-24s %d\n", name, summary.ByProduct[name])
	}
}
