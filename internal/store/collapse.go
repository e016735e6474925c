package store

import (
	"bookhub/internal/book"
)

// joinRow is one book x author x category row of the hydration query.
type joinRow struct {
	book     book.Record
	bookID   int64
	author   *string
	category *string
}

// collapseRows merges join rows sharing a book id into one record with the
// union of its authors and categories. Records come back in the order of
// ids; ids without rows are skipped.
func collapseRows(ids []int64, rows []joinRow) []book.Record {
	type acc struct {
		rec        book.Record
		authors    map[string]struct{}
		categories map[string]struct{}
	}
	byID := make(map[int64]*acc, len(ids))

	for _, row := range rows {
		a, ok := byID[row.bookID]
		if !ok {
			rec := row.book
			id := row.bookID
			rec.ID = &id
			rec.Authors = []string{}
			rec.Categories = []string{}
			a = &acc{rec: rec, authors: map[string]struct{}{}, categories: map[string]struct{}{}}
			byID[row.bookID] = a
		}
		if row.author != nil {
			if _, seen := a.authors[*row.author]; !seen {
				a.authors[*row.author] = struct{}{}
				a.rec.Authors = append(a.rec.Authors, *row.author)
			}
		}
		if row.category != nil {
			if _, seen := a.categories[*row.category]; !seen {
				a.categories[*row.category] = struct{}{}
				a.rec.Categories = append(a.rec.Categories, *row.category)
			}
		}
	}

	out := make([]book.Record, 0, len(ids))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			out = append(out, a.rec)
		}
	}
	return out
}
