package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookhub/internal/app"
	"bookhub/internal/config"
	apphttp "bookhub/internal/http"
	"bookhub/internal/httpx"
	"bookhub/internal/logger"
	"bookhub/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	config.LoadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting bookhub",
		zap.String("env", cfg.App.Env),
		zap.String("addr", cfg.App.Addr),
		zap.Any("providers", cfg.Providers.Enabled),
	)

	metrics.Register()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	var limiter *httpx.RateLimitMiddleware
	if cfg.HTTP.RateLimitRPS > 0 {
		limiter = httpx.NewRateLimitMiddleware(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
		defer limiter.Close()
	}

	bookHandler := apphttp.NewBookHandler(a.Service, apphttp.PagingConfig{
		DefaultMaxPerPage: cfg.Paging.DefaultMaxPerPage,
		MaxPerPageLimit:   cfg.Paging.MaxPerPageLimit,
	}, log.Named("http"))

	router := apphttp.NewRouter(apphttp.RouterConfig{
		Books:        bookHandler,
		Ready:        a.Ready,
		Metrics:      promhttp.Handler(),
		Logger:       log.Named("http"),
		CORSOrigins:  cfg.HTTP.CORSOrigins,
		EnableHSTS:   cfg.HTTP.EnableHSTS,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		RateLimit:    limiter,
	})

	srv := &http.Server{
		Addr:         cfg.App.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server exited gracefully")
	return nil
}
