package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bookhub/internal/app"
	"bookhub/internal/book"
	"bookhub/internal/config"
	"bookhub/internal/logger"
	"bookhub/internal/metrics"

	"go.uber.org/zap"
)

func main() {
	var (
		source     = flag.String("source", "PROVIDER_A", "Provider to import from (PROVIDER_A, PROVIDER_B or an alias)")
		pages      = flag.Int("pages", 1, "Number of result pages to import")
		maxPerPage = flag.Int("max-per-page", 20, "Results per page")
		dryRun     = flag.Bool("dry-run", false, "Search only, do not write")
		filters    = map[string]*string{}
	)
	for _, key := range book.Properties() {
		filters[key] = flag.String(key, "", "Filter on "+key)
	}
	flag.Parse()

	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	raw := make(map[string]string, len(filters))
	for k, v := range filters {
		raw[k] = *v
	}
	f, err := book.ParseFilters(raw)
	if err != nil {
		log.Fatal("invalid filters", zap.Error(err))
	}
	src, err := book.ParseSource(*source)
	if err != nil || src == book.SourceInternal {
		log.Fatal("invalid source", zap.String("source", *source))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	var provider book.Provider
	for _, p := range app.Providers(cfg, nil, log) {
		if p.Source() == src {
			provider = p
		}
	}
	if provider == nil {
		log.Fatal("provider is not enabled", zap.String("source", string(src)))
	}

	res, err := NewImporter(provider, a.Service, log.Named("import")).Run(ctx, Options{
		Filters:    f,
		Pages:      *pages,
		MaxPerPage: *maxPerPage,
		DryRun:     *dryRun,
	})
	if err != nil {
		log.Fatal("import aborted", zap.Error(err), zap.Int("saved", res.Saved))
	}
	log.Info("import finished",
		zap.Int("seen", res.Seen),
		zap.Int("saved", res.Saved),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
}
