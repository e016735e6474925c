package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookhub/internal/book"

	"go.uber.org/zap"
)

const DefaultTTL = time.Hour

// ProviderCache decorates a book.Provider, caching GetByID hits. Searches
// pass straight through since their pagination totals drift upstream.
// Cache failures never fail a lookup.
type ProviderCache struct {
	next   book.Provider
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

func NewProviderCache(next book.Provider, store Store, ttl time.Duration, logger *zap.Logger) *ProviderCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderCache{
		next:   next,
		store:  store,
		ttl:    ttl,
		logger: logger.With(zap.String("provider", string(next.Source()))),
	}
}

func (c *ProviderCache) Source() book.Source { return c.next.Source() }

func (c *ProviderCache) Search(ctx context.Context, filters book.Filters, page, maxPerPage int) (book.Page, error) {
	return c.next.Search(ctx, filters, page, maxPerPage)
}

func (c *ProviderCache) GetByID(ctx context.Context, externalID string) (*book.Record, error) {
	key := Key(c.next.Source(), externalID)

	data, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var rec book.Record
		jerr := json.Unmarshal(data, &rec)
		if jerr == nil {
			c.logger.Debug("cache hit", zap.String("key", key))
			return &rec, nil
		}
		c.logger.Warn("discarding corrupt cache entry", zap.String("key", key), zap.Error(jerr))
	case !errors.Is(err, ErrMiss):
		c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}

	rec, err := c.next.GetByID(ctx, externalID)
	if err != nil || rec == nil {
		return rec, err
	}

	if data, err := json.Marshal(rec); err == nil {
		if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return rec, nil
}

// Key is the Redis key for a provider record.
func Key(source book.Source, externalID string) string {
	return fmt.Sprintf("bookhub:provider:%s:%s", source, externalID)
}
