package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"bookshelf/internal/response"
	"bookshelf/internal/types"
)

type userKey struct{}

func WithUser(ctx context.Context, user *types.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// CurrentUser returns the authenticated user or nil for anonymous requests
func CurrentUser(ctx context.Context) *types.User {
	user, _ := ctx.Value(userKey{}).(*types.User)
	return user
}

type UserFinder interface {
	GetById(ctx context.Context, id string) (*types.User, error)
}

// ContextBuilder resolves the current user from an Authorization header value
type ContextBuilder struct {
	Tokens *Tokens
	Users  UserFinder
}

const bearerPrefix = "bearer "

// Build returns ctx carrying the current user. Missing or non-bearer credentials yield ctx
// unchanged. A bad token yields an error wrapping ErrInvalidToken. A token of a user that no
// longer exists yields an anonymous context.
func (b *ContextBuilder) Build(ctx context.Context, authorization string) (context.Context, error) {
	if len(authorization) < len(bearerPrefix) ||
		!strings.EqualFold(authorization[:len(bearerPrefix)], bearerPrefix) {
		return ctx, nil
	}

	claims, err := b.Tokens.Verify(authorization[len(bearerPrefix):])
	if err != nil {
		return ctx, err
	}

	user, err := b.Users.GetById(ctx, claims.Id)
	if err != nil {
		return ctx, fmt.Errorf("looking up token user: %w", err)
	}

	if user == nil {
		return ctx, nil
	}

	return WithUser(ctx, user), nil
}

// Middleware attaches the current user to request contexts. Invalid tokens are rejected
// with 401 before reaching next.
func (b *ContextBuilder) Middleware(rr *response.Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := b.Build(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				if errors.Is(err, ErrInvalidToken) {
					rr.RespondAndLogCustom(w, r.Context(), &response.Error{
						Message: "Invalid token",
						Code:    response.CodeUnauthenticated,
						Err:     err,
					}, slog.LevelInfo, http.StatusUnauthorized)
					return
				}

				rr.RespondAndLogError(w, r.Context(), err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
