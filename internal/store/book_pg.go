package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"bookhub/internal/book"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// BookPG is the internal store: filtered, paginated lookups over books with
// their authors and categories collapsed back into one record per book.
type BookPG struct {
	db       DB
	entities *EntityPG
	timeout  time.Duration
	logger   *zap.Logger
}

func NewBookPG(db DB, timeout time.Duration, logger *zap.Logger) *BookPG {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookPG{
		db:       db,
		entities: NewEntityPG(),
		timeout:  timeout,
		logger:   logger,
	}
}

func (r *BookPG) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *BookPG) Search(ctx context.Context, filters book.Filters, page, maxPerPage int) (book.Page, error) {
	if err := book.CheckPaging(page, maxPerPage); err != nil {
		return book.Page{}, err
	}
	q := buildSearch(filters)

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.QueryRow(ctx, q.countSQL(), q.args...).Scan(&total); err != nil {
		return book.Page{}, fmt.Errorf("count books: %w", err)
	}
	if total == 0 {
		return book.EmptyPage(book.SourceInternal, page, maxPerPage), nil
	}

	idsSQL, idsArgs := q.idsSQL(maxPerPage, book.Offset(page, maxPerPage))
	rows, err := r.db.Query(ctx, idsSQL, idsArgs...)
	if err != nil {
		return book.Page{}, fmt.Errorf("select book ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return book.Page{}, fmt.Errorf("scan book ids: %w", err)
	}

	items, err := r.hydrate(ctx, r.db, ids)
	if err != nil {
		return book.Page{}, err
	}

	r.logger.Debug("internal search",
		zap.Any("filters", filters),
		zap.Int("page", page),
		zap.Int("total", total),
		zap.Int("items", len(items)),
	)
	return book.NewPage(book.SourceInternal, items, page, maxPerPage, total), nil
}

func (r *BookPG) GetByID(ctx context.Context, id int64) (book.Record, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	items, err := r.hydrate(ctx, r.db, []int64{id})
	if err != nil {
		return book.Record{}, err
	}
	if len(items) == 0 {
		return book.Record{}, book.ErrNotFound
	}
	return items[0], nil
}

func (r *BookPG) DeleteByID(ctx context.Context, id int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	// Link rows go with the book (ON DELETE CASCADE); authors and categories stay.
	tag, err := r.db.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return book.ErrNotFound
	}
	return nil
}

// Create writes the book row, then get-or-creates every author and category
// and links them, all in one transaction.
func (r *BookPG) Create(ctx context.Context, rec book.Record) (book.Record, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return book.Record{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertSQL = `
		INSERT INTO books (title, subtitle, published_date, publisher, description, image,
		                   original_source, external_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NOW(), NOW())
		RETURNING id`

	var id int64
	err = tx.QueryRow(ctx, insertSQL,
		rec.Title, rec.Subtitle, rec.PublishedDate, rec.Publisher, rec.Description, rec.Image,
		string(rec.OriginalSource), rec.ExternalID,
	).Scan(&id)
	if err != nil {
		return book.Record{}, fmt.Errorf("insert book: %w", err)
	}

	// Sorted so concurrent saves take the name locks in the same order.
	for _, name := range sortedNames(rec.Authors) {
		if err := r.entities.Attach(ctx, tx, KindAuthor, id, name); err != nil {
			return book.Record{}, err
		}
	}
	for _, name := range sortedNames(rec.Categories) {
		if err := r.entities.Attach(ctx, tx, KindCategory, id, name); err != nil {
			return book.Record{}, err
		}
	}

	items, err := r.hydrate(ctx, tx, []int64{id})
	if err != nil {
		return book.Record{}, err
	}
	if len(items) == 0 {
		return book.Record{}, fmt.Errorf("book %d vanished before commit", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return book.Record{}, fmt.Errorf("commit: %w", err)
	}
	r.logger.Info("book saved",
		zap.Int64("id", id),
		zap.String("source", string(rec.OriginalSource)),
		zap.Int("authors", len(items[0].Authors)),
		zap.Int("categories", len(items[0].Categories)),
	)
	return items[0], nil
}

func sortedNames(names []string) []string {
	out := book.Dedupe(names)
	sort.Strings(out)
	return out
}

func (r *BookPG) hydrate(ctx context.Context, q Querier, ids []int64) ([]book.Record, error) {
	if len(ids) == 0 {
		return []book.Record{}, nil
	}
	rows, err := q.Query(ctx, hydrateSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate books: %w", err)
	}
	defer rows.Close()

	var joined []joinRow
	for rows.Next() {
		var (
			jr     joinRow
			source string
		)
		if err := rows.Scan(
			&jr.bookID, &jr.book.Title, &jr.book.Subtitle, &jr.book.PublishedDate,
			&jr.book.Publisher, &jr.book.Description, &jr.book.Image,
			&source, &jr.book.ExternalID, &jr.author, &jr.category,
		); err != nil {
			return nil, fmt.Errorf("scan book row: %w", err)
		}
		jr.book.OriginalSource = book.Source(source)
		joined = append(joined, jr)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			r.logger.Warn("hydrate timed out", zap.Int("ids", len(ids)))
		}
		return nil, fmt.Errorf("hydrate books: %w", err)
	}
	return collapseRows(ids, joined), nil
}
