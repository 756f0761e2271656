package users

import (
	"context"

	"bookshelf/internal/types"
)

type Repository interface {
	GetById(ctx context.Context, id string) (*types.User, error)
	GetByUsername(ctx context.Context, username string) (*types.User, error)

	// Save inserts a new user and assigns its Id. A taken username yields an error wrapping
	// types.ErrDuplicate.
	Save(ctx context.Context, user *types.User) error
}
