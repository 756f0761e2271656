// Package library holds the book intake shared by the GraphQL API and the catalog importer
package library

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"bookshelf/internal/pubsub"
	"bookshelf/internal/storage/authors"
	"bookshelf/internal/storage/books"
	"bookshelf/internal/types"
)

type Library struct {
	Authors authors.Repository
	Books   books.Repository
	// Events receives a BookAdded for every stored book. May be nil.
	Events *pubsub.Bus[types.BookAdded]
}

type NewBook struct {
	Title     string
	Author    string // author name
	Published *int32
	Genres    []string
}

// AddBook stores the book under the author with exactly that name, creating the author when
// missing. The book id is appended to the author in a separate write: if that write fails the
// book stays stored without the back-reference.
func (l *Library) AddBook(ctx context.Context, nb NewBook) (*types.Book, *types.Author, error) {
	author, err := l.Authors.GetByName(ctx, nb.Author)
	if err != nil {
		return nil, nil, fmt.Errorf("looking up author: %w", err)
	}

	if author == nil {
		author = &types.Author{Name: nb.Author}
		if err := l.Authors.Save(ctx, author); err != nil {
			return nil, nil, err
		}
	}

	book := &types.Book{
		Title:     nb.Title,
		Author:    author.Id,
		Published: nb.Published,
		Genres:    nb.Genres,
	}
	if book.Genres == nil {
		book.Genres = []string{}
	}

	if err := l.Books.Save(ctx, book); err != nil {
		return nil, nil, err
	}

	if err := l.Authors.AppendBook(ctx, author.Id, book.Id); err != nil {
		return nil, nil, fmt.Errorf("linking book %s to author: %w", book.Id, err)
	}
	author.Books = append(author.Books, book.Id)

	if l.Events != nil {
		snapshot := *author
		snapshot.Books = append([]string(nil), author.Books...)
		l.Events.Publish(types.TopicBookAdded, types.BookAdded{Book: *book, Author: snapshot})
	}

	return book, author, nil
}

// HasBook reports whether the author with exactly that name already has a book titled title
func (l *Library) HasBook(ctx context.Context, title, authorName string) (bool, error) {
	author, err := l.Authors.GetByName(ctx, authorName)
	if err != nil || author == nil {
		return false, err
	}

	found, err := l.Books.Search(ctx, books.Filter{AuthorId: author.Id})
	if err != nil {
		return false, err
	}

	return lo.ContainsBy(found, func(b *types.Book) bool { return b.Title == title }), nil
}
