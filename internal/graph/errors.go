package graph

import (
	"context"
	"errors"

	"bookshelf/internal/response"
	"bookshelf/internal/types"
)

var (
	errNotAuthenticated = &response.Error{Message: "Not authenticated", Code: response.CodeUnauthenticated}
	errWrongCredentials = &response.Error{Message: "Wrong credentials", Code: response.CodeUnauthenticated}
)

// storageError turns rejected writes into BAD_USER_INPUT errors carrying the original
// arguments. Anything else is logged and masked.
func (r *Resolver) storageError(ctx context.Context, err error, args any) error {
	if errors.Is(err, types.ErrInvalid) || errors.Is(err, types.ErrDuplicate) {
		return &response.Error{
			Message: err.Error(),
			Code:    response.CodeBadUserInput,
			Extra:   map[string]any{"invalidArgs": args},
			Err:     err,
		}
	}

	return r.Responder.Internal(ctx, err)
}
