package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"carbonequip/internal/config"
	"carbonequip/internal/dataset"
	"carbonequip/internal/extract"
	"carbonequip/internal/listener"
	"carbonequip/internal/server"
	"carbonequip/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	must(cfg.Require("DATA_SOURCE", cfg.DataSource))

	logger := server.Logger(cfg)
	metrics := server.NewMetrics()
	catalog := dataset.NewCatalog(dataset.NewLoader(cfg), cfg.DataSource, logger)
	catalog.SetObserver(metrics)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.LoadOnStart {
		catalog.Ensure(ctx)
	}

	if cfg.RefreshInterval > 0 || cfg.RefreshCron != "" {
		var crawler listener.Crawler
		if cfg.RefreshCrawl {
			store, err := storage.Open(cfg.DataDir)
			must(err)
			crawler = extract.NewService(cfg, store, logger)
		}
		refresher := listener.NewService(cfg, catalog, crawler, logger)
		go func() {
			if err := refresher.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("refresher stopped")
			}
		}()
	}

	srv := server.New(cfg, catalog, metrics, logger)
	must(srv.ListenAndServe(ctx, cfg.HTTPAddr))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
