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
	"cis-portal/internal/importer"
	"cis-portal/internal/logger"
	"go.uber.org/zap"
)

func main() {
	var filePath, username, password string
	flag.StringVar(&filePath, "file", "", "Path to a customer registration CSV")
	flag.StringVar(&username, "username", "", "Officer username; empty reuses the stored session")
	flag.StringVar(&password, "password", "", "Officer password")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zlog, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	zlog = zlog.Named("importer")
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

	f, err := os.Open(filePath)
	if err != nil {
		zlog.Fatal("open file", zap.Error(err))
	}
	defer f.Close()

	start := time.Now()
	report, err := importer.NewCSVImporter(f, portal.CustomerService).Run(ctx)
	if err != nil {
		zlog.Fatal("import failed", zap.Error(err))
	}

	for _, w := range report.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	for _, failure := range report.Failures {
		fmt.Printf("failed: %s\n", failure.Error())
	}
	fmt.Printf("Registered %d customers (%d ID cards saved, %d failed) in %s\n",
		report.Imported, report.CardsSaved, len(report.Failures), time.Since(start).Truncate(time.Millisecond))
}
