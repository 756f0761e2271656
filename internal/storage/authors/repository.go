package authors

import (
	"context"

	"bookshelf/internal/types"
)

type Repository interface {
	GetById(ctx context.Context, id string) (*types.Author, error)
	// GetByIds shall return map with NON-NULLS!
	GetByIds(ctx context.Context, ids ...string) (map[string]*types.Author, error)
	// GetByName returns the first author stored under exactly this name
	GetByName(ctx context.Context, name string) (*types.Author, error)
	GetAll(ctx context.Context) ([]*types.Author, error)
	Count(ctx context.Context) (int64, error)

	// Save inserts the author when Id is empty (and assigns Id), otherwise updates name and born.
	// Books is never written by Save, use AppendBook.
	Save(ctx context.Context, author *types.Author) error
	AppendBook(ctx context.Context, authorId, bookId string) error
}
