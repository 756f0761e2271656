package graph

import (
	"context"

	"github.com/graph-gophers/graphql-go"
	"github.com/samber/lo"

	"bookshelf/internal/types"
)

type bookResolver struct {
	r      *Resolver
	book   *types.Book
	author *types.Author
}

func (b *bookResolver) ID() graphql.ID {
	return graphql.ID(b.book.Id)
}

func (b *bookResolver) Title() string {
	return b.book.Title
}

func (b *bookResolver) Author() *authorResolver {
	return &authorResolver{r: b.r, author: b.author}
}

func (b *bookResolver) Published() *int32 {
	return b.book.Published
}

func (b *bookResolver) Genres() []string {
	return b.book.Genres
}

type authorResolver struct {
	r      *Resolver
	author *types.Author
	books  []*types.Book // nil until loaded
}

func (a *authorResolver) ID() graphql.ID {
	return graphql.ID(a.author.Id)
}

func (a *authorResolver) Name() string {
	return a.author.Name
}

func (a *authorResolver) Born() *int32 {
	return a.author.Born
}

func (a *authorResolver) BookCount() int32 {
	return int32(len(a.author.Books))
}

func (a *authorResolver) Books(ctx context.Context) ([]*bookResolver, error) {
	if a.books == nil {
		loaded, err := a.r.Books.GetByIds(ctx, a.author.Books...)
		if err != nil {
			return nil, a.r.Responder.Internal(ctx, err)
		}
		a.books = inOrder(a.author.Books, loaded)
	}

	return lo.Map(a.books, func(b *types.Book, _ int) *bookResolver {
		return &bookResolver{r: a.r, book: b, author: a.author}
	}), nil
}

// inOrder picks books by ids keeping the order of ids. Dangling ids are skipped.
func inOrder(ids []string, books map[string]*types.Book) []*types.Book {
	return lo.FilterMap(ids, func(id string, _ int) (*types.Book, bool) {
		b, ok := books[id]
		return b, ok
	})
}

type userResolver struct {
	user *types.User
}

func (u *userResolver) ID() graphql.ID {
	return graphql.ID(u.user.Id)
}

func (u *userResolver) Username() string {
	return u.user.Username
}

func (u *userResolver) FavoriteGenre() string {
	return u.user.FavoriteGenre
}

type tokenResolver struct {
	value string
}

func (t *tokenResolver) Value() string {
	return t.value
}
