package graph

import (
	"context"
	"crypto/subtle"

	"bookshelf/internal/auth"
	"bookshelf/internal/library"
	"bookshelf/internal/types"
)

type addBookArgs struct {
	Title     string   `json:"title"`
	Author    string   `json:"author"`
	Published *int32   `json:"published"`
	Genres    []string `json:"genres"`
}

// AddBook stores the book, creating its author on first mention, and announces it to
// bookAdded subscribers.
func (r *Resolver) AddBook(ctx context.Context, args addBookArgs) (*bookResolver, error) {
	if auth.CurrentUser(ctx) == nil {
		return nil, errNotAuthenticated
	}

	book, author, err := r.library.AddBook(ctx, library.NewBook{
		Title:     args.Title,
		Author:    args.Author,
		Published: args.Published,
		Genres:    args.Genres,
	})
	if err != nil {
		return nil, r.storageError(ctx, err, args)
	}

	return &bookResolver{r: r, book: book, author: author}, nil
}

type editAuthorArgs struct {
	Name      string `json:"name"`
	SetBornTo int32  `json:"setBornTo"`
}

func (r *Resolver) EditAuthor(ctx context.Context, args editAuthorArgs) (*authorResolver, error) {
	if auth.CurrentUser(ctx) == nil {
		return nil, errNotAuthenticated
	}

	author, err := r.Authors.GetByName(ctx, args.Name)
	if err != nil {
		return nil, r.Responder.Internal(ctx, err)
	}
	if author == nil {
		return nil, nil
	}

	born := args.SetBornTo
	author.Born = &born
	if err := r.Authors.Save(ctx, author); err != nil {
		return nil, r.storageError(ctx, err, args)
	}

	return &authorResolver{r: r, author: author}, nil
}

type createUserArgs struct {
	Username      string `json:"username"`
	FavoriteGenre string `json:"favoriteGenre"`
}

func (r *Resolver) CreateUser(ctx context.Context, args createUserArgs) (*userResolver, error) {
	user := &types.User{
		Username:      args.Username,
		FavoriteGenre: args.FavoriteGenre,
	}

	if err := r.Users.Save(ctx, user); err != nil {
		return nil, r.storageError(ctx, err, args)
	}

	return &userResolver{user: user}, nil
}

type loginArgs struct {
	Username string
	Password string
}

func (r *Resolver) Login(ctx context.Context, args loginArgs) (*tokenResolver, error) {
	user, err := r.Users.GetByUsername(ctx, args.Username)
	if err != nil {
		return nil, r.Responder.Internal(ctx, err)
	}

	if user == nil || !r.passwordMatches(args.Password) {
		return nil, errWrongCredentials
	}

	value, err := r.Tokens.Issue(user)
	if err != nil {
		return nil, r.Responder.Internal(ctx, err)
	}

	return &tokenResolver{value: value}, nil
}

func (r *Resolver) passwordMatches(password string) bool {
	if r.LoginPassword == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(password), []byte(r.LoginPassword)) == 1
}
