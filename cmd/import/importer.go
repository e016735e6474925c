package main

import (
	"context"
	"errors"

	"bookhub/internal/book"

	"go.uber.org/zap"
)

// Saver persists a provider record into the internal store.
type Saver interface {
	Save(ctx context.Context, payload book.SavePayload) (book.Record, error)
}

type Options struct {
	Filters    book.Filters
	Pages      int
	MaxPerPage int
	DryRun     bool
}

// Result summarizes an import run.
type Result struct {
	Seen    int
	Saved   int
	Skipped int
	Failed  int
}

type Importer struct {
	provider book.Provider
	saver    Saver
	logger   *zap.Logger
}

func NewImporter(provider book.Provider, saver Saver, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{provider: provider, saver: saver, logger: logger}
}

// Run walks the provider's result pages and saves every hit. A failing
// record is logged and counted; only search-level errors abort the run.
func (im *Importer) Run(ctx context.Context, opts Options) (Result, error) {
	var res Result
	source := im.provider.Source()

	for page := 1; page <= opts.Pages; page++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		results, err := im.provider.Search(ctx, opts.Filters, page, opts.MaxPerPage)
		if err != nil {
			return res, err
		}
		im.logger.Info("fetched page",
			zap.String("source", string(source)),
			zap.Int("page", page),
			zap.Int("pages", results.Pages),
			zap.Int("items", len(results.Items)),
		)

		for _, rec := range results.Items {
			res.Seen++
			if rec.ExternalID == "" {
				res.Skipped++
				continue
			}
			if opts.DryRun {
				im.logger.Info("would import", zap.String("external_id", rec.ExternalID), zap.String("title", rec.Title))
				res.Skipped++
				continue
			}

			saved, err := im.saver.Save(ctx, book.SavePayload{Source: source, ExternalID: rec.ExternalID})
			switch {
			case errors.Is(err, book.ErrNotFound):
				im.logger.Warn("record vanished upstream", zap.String("external_id", rec.ExternalID))
				res.Skipped++
			case err != nil:
				im.logger.Error("import failed", zap.String("external_id", rec.ExternalID), zap.Error(err))
				res.Failed++
			default:
				im.logger.Info("imported", zap.Int64("id", *saved.ID), zap.String("title", saved.Title))
				res.Saved++
			}
		}

		if page >= results.Pages {
			break
		}
	}
	return res, nil
}
