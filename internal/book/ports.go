package book

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=book

// Store is the internally-owned relational catalog.
type Store interface {
	Search(ctx context.Context, filters Filters, page, maxPerPage int) (Page, error)
	GetByID(ctx context.Context, id int64) (Record, error)
	DeleteByID(ctx context.Context, id int64) error
	Create(ctx context.Context, rec Record) (Record, error)
}

// Provider is a third-party catalog normalized into Record.
//
// Search fails only with *InvalidFilterError; transport problems yield an
// empty page. GetByID returns (nil, nil) when the provider has nothing.
type Provider interface {
	Source() Source
	Search(ctx context.Context, filters Filters, page, maxPerPage int) (Page, error)
	GetByID(ctx context.Context, externalID string) (*Record, error)
}
