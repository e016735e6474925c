// Package app assembles the store, providers and aggregator from config so
// every binary wires them the same way.
package app

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"bookhub/internal/aggregator"
	"bookhub/internal/book"
	"bookhub/internal/cache"
	"bookhub/internal/config"
	"bookhub/internal/platform/fetch"
	"bookhub/internal/platform/googlebooks"
	"bookhub/internal/platform/openlibrary"
	"bookhub/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const userAgent = "bookhub/1.0 (+https://github.com/bookhub)"

// App holds the long-lived dependencies of a process.
type App struct {
	Pool    *pgxpool.Pool
	Redis   *cache.RedisStore
	Service *aggregator.Service
}

// New opens the database, optionally Redis, and builds the aggregator.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := OpenDB(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	logger.Info("database connection OK", zap.String("dsn", RedactDSN(cfg.Database.DSN)))

	a := &App{Pool: pool}

	var cacheStore cache.Store
	if cfg.Redis.Addr != "" {
		rs, err := cache.NewRedisStore(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			// The cache is an optimization; run without it.
			logger.Warn("redis unavailable, provider cache disabled", zap.Error(err))
		} else {
			a.Redis = rs
			cacheStore = rs
		}
	}

	books := store.NewBookPG(pool, cfg.Database.Timeout, logger.Named("store"))
	providers := Providers(cfg, cacheStore, logger)
	a.Service = aggregator.NewService(books, providers,
		aggregator.Config{ProviderTimeout: cfg.Providers.Timeout}, logger.Named("aggregator"))
	return a, nil
}

// Ready pings the database and, when configured, Redis.
func (a *App) Ready(ctx context.Context) error {
	if err := a.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	a.Pool.Close()
}

// Providers builds the enabled adapters in configured order. A non-nil
// cacheStore wraps each adapter in a lookup cache.
func Providers(cfg *config.Config, cacheStore cache.Store, logger *zap.Logger) []book.Provider {
	var out []book.Provider
	for _, src := range cfg.Providers.Enabled {
		getter := fetch.NewClient(fetch.Options{
			Name:       string(src),
			UserAgent:  userAgent,
			Timeout:    cfg.Providers.Timeout,
			RPS:        cfg.Providers.RPS,
			MaxRetries: cfg.Providers.MaxRetries,
			Logger:     logger.Named("fetch"),
		})

		var p book.Provider
		switch src {
		case book.SourceProviderA:
			p = googlebooks.NewClient(getter, googlebooks.Config{
				BaseURL: cfg.Providers.GoogleBaseURL,
				APIKey:  cfg.Providers.GoogleAPIKey,
			}, logger.Named("googlebooks"))
		case book.SourceProviderB:
			p = openlibrary.NewClient(getter, openlibrary.Config{
				BaseURL:   cfg.Providers.OLBaseURL,
				CoversURL: cfg.Providers.OLCoversURL,
			}, logger.Named("openlibrary"))
		default:
			continue
		}
		if cacheStore != nil {
			p = cache.NewProviderCache(p, cacheStore, cfg.Providers.CacheTTL, logger.Named("cache"))
		}
		out = append(out, p)
	}
	return out
}

// OpenDB creates a pool and pings it.
func OpenDB(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot ping database (%s): %w", RedactDSN(dsn), err)
	}
	return pool, nil
}

// RedactDSN hides the password of a DSN, URL or key=value form.
func RedactDSN(dsn string) string {
	if !strings.Contains(dsn, "://") {
		fields := strings.Fields(dsn)
		for i, f := range fields {
			if strings.HasPrefix(f, "password=") {
				fields[i] = "password=xxxxx"
			}
		}
		return strings.Join(fields, " ")
	}
	u, err := url.Parse(dsn)
	if err == nil {
		return u.Redacted()
	}
	// Malformed escapes in the userinfo; drop it entirely.
	scheme, rest, _ := strings.Cut(dsn, "://")
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://xxxxx" + rest[at:]
	}
	return scheme + "://xxxxx"
}
