package graph

import (
	"context"
	"log/slog"

	"github.com/samber/lo"

	"bookshelf/internal/auth"
	"bookshelf/internal/storage/books"
	"bookshelf/internal/types"
)

func (r *Resolver) BookCount(ctx context.Context) (int32, error) {
	n, err := r.Books.Count(ctx)
	if err != nil {
		return 0, r.Responder.Internal(ctx, err)
	}

	return int32(n), nil
}

func (r *Resolver) AuthorCount(ctx context.Context) (int32, error) {
	n, err := r.Authors.Count(ctx)
	if err != nil {
		return 0, r.Responder.Internal(ctx, err)
	}

	return int32(n), nil
}

type allBooksArgs struct {
	Author *string
	Genre  *string
}

func (r *Resolver) AllBooks(ctx context.Context, args allBooksArgs) ([]*bookResolver, error) {
	var filter books.Filter

	if args.Author != nil {
		author, err := r.Authors.GetByName(ctx, *args.Author)
		if err != nil {
			return nil, r.Responder.Internal(ctx, err)
		}
		if author == nil {
			return []*bookResolver{}, nil
		}
		filter.AuthorId = author.Id
	}

	if args.Genre != nil {
		filter.Genre = *args.Genre
	}

	found, err := r.Books.Search(ctx, filter)
	if err != nil {
		return nil, r.Responder.Internal(ctx, err)
	}

	authorIds := lo.Uniq(lo.Map(found, func(b *types.Book, _ int) string { return b.Author }))
	byId, err := r.Authors.GetByIds(ctx, authorIds...)
	if err != nil {
		return nil, r.Responder.Internal(ctx, err)
	}

	return lo.Map(found, func(b *types.Book, _ int) *bookResolver {
		author, ok := byId[b.Author]
		if !ok {
			r.Logger.WarnContext(ctx, "Book references missing author",
				slog.String("book_id", b.Id), slog.String("author_id", b.Author))
			author = &types.Author{Id: b.Author}
		}

		return &bookResolver{r: r, book: b, author: author}
	}), nil
}

func (r *Resolver) AllAuthors(ctx context.Context) ([]*authorResolver, error) {
	all, err := r.Authors.GetAll(ctx)
	if err != nil {
		return nil, r.Responder.Internal(ctx, err)
	}

	bookIds := lo.Uniq(lo.FlatMap(all, func(a *types.Author, _ int) []string { return a.Books }))
	loaded, err := r.Books.GetByIds(ctx, bookIds...)
	if err != nil {
		return nil, r.Responder.Internal(ctx, err)
	}

	return lo.Map(all, func(a *types.Author, _ int) *authorResolver {
		return &authorResolver{r: r, author: a, books: inOrder(a.Books, loaded)}
	}), nil
}

func (r *Resolver) Me(ctx context.Context) *userResolver {
	user := auth.CurrentUser(ctx)
	if user == nil {
		return nil
	}

	return &userResolver{user: user}
}
