package book

// Page is the paginated envelope returned by every source.
type Page struct {
	Items      []Record `json:"items"`
	Page       int      `json:"page"`
	Pages      int      `json:"pages"`
	MaxPerPage int      `json:"maxPerPage"`
	TotalItems int      `json:"totalItems"`
	Source     Source   `json:"source"`
}

// NewPage fills in the page count from the total.
func NewPage(source Source, items []Record, page, maxPerPage, total int) Page {
	if items == nil {
		items = []Record{}
	}
	return Page{
		Items:      items,
		Page:       page,
		Pages:      CountPages(total, maxPerPage),
		MaxPerPage: maxPerPage,
		TotalItems: total,
		Source:     source,
	}
}

// EmptyPage is what a source returns when it has nothing to offer.
func EmptyPage(source Source, page, maxPerPage int) Page {
	return NewPage(source, nil, page, maxPerPage, 0)
}

// CountPages is ceil(total/perPage); zero when there is nothing to page.
func CountPages(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// Offset converts a 1-based page into a row offset.
func Offset(page, maxPerPage int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * maxPerPage
}

// CheckPaging rejects non-positive page arguments.
func CheckPaging(page, maxPerPage int) error {
	if page < 1 {
		return &ValidationError{Field: "page", Message: "page must be >= 1"}
	}
	if maxPerPage < 1 {
		return &ValidationError{Field: "maxPerPage", Message: "maxPerPage must be >= 1"}
	}
	return nil
}
