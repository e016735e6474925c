package store

import (
	"fmt"
	"strings"

	"bookhub/internal/book"
)

// columnFilters maps filter keys to the book column matched by substring.
var columnFilters = []struct {
	key    string
	column string
}{
	{book.FilterTitle, "b.title"},
	{book.FilterSubtitle, "b.subtitle"},
	{book.FilterPublisher, "b.publisher"},
	{book.FilterPublishedDate, "b.published_date"},
	{book.FilterDescription, "b.description"},
}

type searchQuery struct {
	joins   []string
	clauses []string
	args    []any
}

// buildSearch turns filters into joins and predicates over "books b".
// Author and category filters need joins and match names exactly; the rest
// are case-insensitive substring matches on the book's own columns. Without
// an author/category filter no join is added, so books lacking links are
// still counted.
func buildSearch(filters book.Filters) searchQuery {
	q := searchQuery{clauses: []string{"1=1"}}

	for _, cf := range columnFilters {
		v := filters.Get(cf.key)
		if v == "" {
			continue
		}
		q.args = append(q.args, "%"+escapeLike(v)+"%")
		q.clauses = append(q.clauses, fmt.Sprintf("%s ILIKE $%d", cf.column, len(q.args)))
	}

	if author := filters.Get(book.FilterAuthor); author != "" {
		q.args = append(q.args, author)
		q.joins = append(q.joins,
			"JOIN book_authors fba ON fba.book_id = b.id",
			fmt.Sprintf("JOIN authors fa ON fa.id = fba.author_id AND fa.name = $%d", len(q.args)),
		)
	}

	if category := filters.Get(book.FilterCategory); category != "" {
		q.args = append(q.args, category)
		q.joins = append(q.joins,
			"JOIN book_categories fbc ON fbc.book_id = b.id",
			fmt.Sprintf("JOIN categories fc ON fc.id = fbc.category_id AND fc.name = $%d", len(q.args)),
		)
	}

	return q
}

func (q searchQuery) from() string {
	parts := append([]string{"FROM books b"}, q.joins...)
	parts = append(parts, "WHERE "+strings.Join(q.clauses, " AND "))
	return strings.Join(parts, "\n\t\t")
}

// countSQL counts distinct matching books; a book matching several link
// rows is counted once.
func (q searchQuery) countSQL() string {
	return "SELECT COUNT(DISTINCT b.id)\n\t\t" + q.from()
}

// idsSQL pages over the distinct id set, never over join-expanded rows.
func (q searchQuery) idsSQL(limit, offset int) (string, []any) {
	args := append([]any{}, q.args...)
	args = append(args, limit, offset)
	sql := fmt.Sprintf("SELECT DISTINCT b.id\n\t\t%s\n\t\tORDER BY b.id\n\t\tLIMIT $%d OFFSET $%d",
		q.from(), len(args)-1, len(args))
	return sql, args
}

const hydrateSQL = `
	SELECT b.id, b.title, COALESCE(b.subtitle, ''), COALESCE(b.published_date, ''),
	       COALESCE(b.publisher, ''), COALESCE(b.description, ''), COALESCE(b.image, ''),
	       b.original_source, COALESCE(b.external_id, ''), a.name, c.name
	FROM books b
	LEFT JOIN book_authors ba ON ba.book_id = b.id
	LEFT JOIN authors a ON a.id = ba.author_id
	LEFT JOIN book_categories bc ON bc.book_id = b.id
	LEFT JOIN categories c ON c.id = bc.category_id
	WHERE b.id = ANY($1)
	ORDER BY b.id, a.id, c.id`

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
