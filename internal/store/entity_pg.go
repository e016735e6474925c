package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// EntityKind selects the author or category tables.
type EntityKind string

const (
	KindAuthor   EntityKind = "author"
	KindCategory EntityKind = "category"
)

type entityTables struct {
	entity     string
	link       string
	linkColumn string
}

func (k EntityKind) tables() (entityTables, error) {
	switch k {
	case KindAuthor:
		return entityTables{entity: "authors", link: "book_authors", linkColumn: "author_id"}, nil
	case KindCategory:
		return entityTables{entity: "categories", link: "book_categories", linkColumn: "category_id"}, nil
	}
	return entityTables{}, fmt.Errorf("unknown entity kind %q", string(k))
}

// maxGetOrCreateAttempts bounds the insert/select loop in GetOrCreate.
const maxGetOrCreateAttempts = 3

// EntityPG is the get-or-create engine for authors and categories.
//
// Uniqueness of names is enforced by the schema. The insert uses
// ON CONFLICT DO NOTHING so a losing concurrent writer gets no row back and
// re-reads the winner's id instead of failing; a unique violation would
// abort the surrounding transaction.
type EntityPG struct{}

func NewEntityPG() *EntityPG {
	return &EntityPG{}
}

// GetOrCreate returns the id of the entity called name, creating it if absent.
func (e *EntityPG) GetOrCreate(ctx context.Context, q Querier, kind EntityKind, name string) (int64, error) {
	t, err := kind.tables()
	if err != nil {
		return 0, err
	}
	insertSQL := fmt.Sprintf(`
		INSERT INTO %s (name, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (name) DO NOTHING
		RETURNING id`, t.entity)
	selectSQL := fmt.Sprintf(`SELECT id FROM %s WHERE name = $1`, t.entity)

	for attempt := 1; attempt <= maxGetOrCreateAttempts; attempt++ {
		var id int64
		err := q.QueryRow(ctx, insertSQL, name).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("insert %s %q: %w", kind, name, err)
		}

		err = q.QueryRow(ctx, selectSQL, name).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("select %s %q: %w", kind, name, err)
		}
		// The conflicting row was rolled back between our insert and select.
	}
	return 0, fmt.Errorf("get or create %s %q: gave up after %d attempts", kind, name, maxGetOrCreateAttempts)
}

// Link creates the (book, entity) join row unless it already exists.
func (e *EntityPG) Link(ctx context.Context, q Querier, kind EntityKind, bookID, entityID int64) error {
	t, err := kind.tables()
	if err != nil {
		return err
	}
	linkSQL := fmt.Sprintf(`
		INSERT INTO %s (book_id, %s, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (book_id, %s) DO NOTHING`, t.link, t.linkColumn, t.linkColumn)
	if _, err := q.Exec(ctx, linkSQL, bookID, entityID); err != nil {
		return fmt.Errorf("link %s %d to book %d: %w", kind, entityID, bookID, err)
	}
	return nil
}

// Attach is GetOrCreate followed by Link.
func (e *EntityPG) Attach(ctx context.Context, q Querier, kind EntityKind, bookID int64, name string) error {
	id, err := e.GetOrCreate(ctx, q, kind, name)
	if err != nil {
		return err
	}
	return e.Link(ctx, q, kind, bookID, id)
}
