package http

import (
	"context"
	"net/http"
	"time"

	"bookhub/internal/httpx"

	"go.uber.org/zap"
)

type RouterConfig struct {
	Books *BookHandler
	// Ready reports whether dependencies answer; nil means always ready.
	Ready   func(ctx context.Context) error
	Metrics http.Handler
	Logger  *zap.Logger

	CORSOrigins  []string
	EnableHSTS   bool
	MaxBodyBytes int64
	// RateLimit is optional.
	RateLimit *httpx.RateLimitMiddleware
}

// NewRouter registers every route and wraps the mux in the middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	router := http.NewServeMux()

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
			defer cancel()
			if err := cfg.Ready(ctx); err != nil {
				cfg.Logger.Warn("readiness check failed", zap.Error(err))
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics)
	}

	h := cfg.Books
	router.Handle("/books", MethodMux(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(h.List),
		http.MethodPost: http.HandlerFunc(h.Create),
	}))
	router.Handle("/books/", MethodMux(map[string]http.Handler{
		http.MethodGet:    http.HandlerFunc(h.Get),
		http.MethodDelete: http.HandlerFunc(h.Delete),
	}))
	router.Handle("/sources", MethodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(h.Sources),
	}))

	mws := []func(http.Handler) http.Handler{
		httpx.RequestIDMiddleware,
		httpx.RecoveryMiddleware(cfg.Logger),
		httpx.AccessLogMiddleware(cfg.Logger),
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
		httpx.CORSMiddleware(cfg.CORSOrigins),
	}
	if cfg.RateLimit != nil {
		mws = append(mws, cfg.RateLimit.Middleware)
	}
	mws = append(mws, httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes))
	return httpx.Chain(router, mws...)
}
