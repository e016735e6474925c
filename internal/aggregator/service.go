// Package aggregator is the single entry point for listing, reading, saving
// and deleting books across the internal store and the external providers.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bookhub/internal/book"
	"bookhub/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultProviderTimeout = 30 * time.Second

type Config struct {
	// ProviderTimeout bounds every outbound provider call.
	ProviderTimeout time.Duration
}

type Service struct {
	store     book.Store
	providers []book.Provider
	bySource  map[book.Source]book.Provider
	cfg       Config
	logger    *zap.Logger
}

// NewService wires the store and providers. Providers are queried in the
// order given; a later provider with a duplicate source is ignored.
func NewService(store book.Store, providers []book.Provider, cfg Config, logger *zap.Logger) *Service {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = DefaultProviderTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:    store,
		bySource: make(map[book.Source]book.Provider, len(providers)),
		cfg:      cfg,
		logger:   logger,
	}
	for _, p := range providers {
		if _, dup := s.bySource[p.Source()]; dup {
			logger.Warn("duplicate provider ignored", zap.String("source", string(p.Source())))
			continue
		}
		s.bySource[p.Source()] = p
		s.providers = append(s.providers, p)
	}
	return s
}

// Sources lists the active sources, internal first.
func (s *Service) Sources() []book.Source {
	out := make([]book.Source, 0, len(s.providers)+1)
	out = append(out, book.SourceInternal)
	for _, p := range s.providers {
		out = append(out, p.Source())
	}
	return out
}

// List serves from the internal store and falls back to every provider when
// the store has no match. Internal and provider results are never merged.
func (s *Service) List(ctx context.Context, filters book.Filters, page, maxPerPage int) ([]book.Page, error) {
	if err := book.CheckPaging(page, maxPerPage); err != nil {
		return nil, err
	}

	internal, err := s.store.Search(ctx, filters, page, maxPerPage)
	if err != nil {
		return nil, fmt.Errorf("search internal store: %w", err)
	}
	if internal.TotalItems > 0 || len(s.providers) == 0 {
		metrics.IncListSource(string(book.SourceInternal))
		return []book.Page{internal}, nil
	}

	metrics.IncProviderFallback()
	return s.fanOut(ctx, filters, page, maxPerPage)
}

func (s *Service) fanOut(ctx context.Context, filters book.Filters, page, maxPerPage int) ([]book.Page, error) {
	pages := make([]*book.Page, len(s.providers))
	errs := make([]error, len(s.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range s.providers {
		i, p := i, p
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.cfg.ProviderTimeout)
			defer cancel()

			res, err := p.Search(callCtx, filters, page, maxPerPage)
			if err != nil {
				errs[i] = err
				s.logger.Warn("provider search failed",
					zap.String("source", string(p.Source())), zap.Error(err))
				return nil
			}
			pages[i] = &res
			return nil
		})
	}
	_ = g.Wait()

	out := make([]book.Page, 0, len(pages))
	for _, p := range pages {
		if p == nil {
			continue
		}
		metrics.IncListSource(string(p.Source))
		out = append(out, *p)
	}
	if len(out) > 0 {
		return out, nil
	}

	// Surface the filter problem only when every provider rejected it.
	var first *book.InvalidFilterError
	for _, err := range errs {
		var invalid *book.InvalidFilterError
		if !errors.As(err, &invalid) {
			return out, nil
		}
		if first == nil {
			first = invalid
		}
	}
	return nil, first
}

// Get reads one record. INTERNAL ids are numeric store ids; any other source
// takes the provider's external id.
func (s *Service) Get(ctx context.Context, id string, source book.Source) (*book.Record, error) {
	if source == book.SourceInternal {
		bookID, err := ParseID(id)
		if err != nil {
			return nil, err
		}
		rec, err := s.store.GetByID(ctx, bookID)
		if err != nil {
			return nil, err
		}
		return &rec, nil
	}

	p, ok := s.bySource[source]
	if !ok {
		return nil, &book.ValidationError{Field: "source", Message: "source " + string(source) + " is not enabled"}
	}
	if strings.TrimSpace(id) == "" {
		return nil, &book.ValidationError{Field: "id", Message: "external id is required"}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()

	rec, err := p.GetByID(callCtx, id)
	if err != nil {
		s.logger.Warn("provider lookup failed",
			zap.String("source", string(source)), zap.String("external_id", id), zap.Error(err))
		return nil, book.ErrNotFound
	}
	if rec == nil {
		return nil, book.ErrNotFound
	}
	return rec, nil
}

// Save persists a record. Provider payloads are resolved through the
// provider first and nothing is written when it has no such id.
func (s *Service) Save(ctx context.Context, payload book.SavePayload) (book.Record, error) {
	rec, err := s.resolve(ctx, payload)
	if err != nil {
		return book.Record{}, err
	}

	saved, err := s.store.Create(ctx, rec)
	if err != nil {
		var failed *book.SaveFailedError
		if errors.As(err, &failed) {
			return book.Record{}, err
		}
		return book.Record{}, &book.SaveFailedError{Err: err}
	}
	metrics.IncBookSaved(string(saved.OriginalSource))
	return saved, nil
}

func (s *Service) resolve(ctx context.Context, payload book.SavePayload) (book.Record, error) {
	if payload.Source == book.SourceInternal {
		rec := payload.Book
		rec.ID = nil
		rec.OriginalSource = book.SourceInternal
		if payload.ExternalID != "" || rec.ExternalID != "" {
			return book.Record{}, &book.ValidationError{Field: "externalId", Message: "externalId must be empty for INTERNAL records"}
		}
		rec, err := book.NewRecord(rec)
		if err != nil {
			return book.Record{}, err
		}
		if len(rec.Authors) == 0 {
			return book.Record{}, &book.ValidationError{Field: "authors", Message: "at least one author is required"}
		}
		if len(rec.Categories) == 0 {
			return book.Record{}, &book.ValidationError{Field: "categories", Message: "at least one category is required"}
		}
		return rec, nil
	}

	if payload.ExternalID == "" {
		return book.Record{}, &book.ValidationError{Field: "externalId", Message: "externalId is required for " + string(payload.Source)}
	}
	found, err := s.Get(ctx, payload.ExternalID, payload.Source)
	if err != nil {
		return book.Record{}, err
	}
	rec := *found
	rec.ID = nil
	return book.NewRecord(rec)
}

// Delete removes an internally stored book.
func (s *Service) Delete(ctx context.Context, id string) error {
	bookID, err := ParseID(id)
	if err != nil {
		return err
	}
	return s.store.DeleteByID(ctx, bookID)
}

// ParseID parses a positive internal book id.
func ParseID(id string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || n <= 0 {
		return 0, &book.ValidationError{Field: "id", Message: "id must be a positive integer"}
	}
	return n, nil
}
