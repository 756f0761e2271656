package books

import (
	"context"

	"bookshelf/internal/types"
)

// Filter narrows Search. Empty fields do not filter.
type Filter struct {
	AuthorId string
	// Genre matches books whose genres contain exactly this value
	Genre string
}

type Repository interface {
	GetById(ctx context.Context, id string) (*types.Book, error)
	// GetByIds shall return map with NON-NULLS!
	GetByIds(ctx context.Context, ids ...string) (map[string]*types.Book, error)

	// Search returns matching books in insertion order
	Search(ctx context.Context, filter Filter) ([]*types.Book, error)
	Count(ctx context.Context) (int64, error)

	// Save inserts a new book and assigns its Id. Books are immutable once stored.
	Save(ctx context.Context, book *types.Book) error
}
