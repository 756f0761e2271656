// Package graph implements the GraphQL schema: queries and mutations over books, authors and
// users, and the bookAdded subscription.
package graph

import (
	_ "embed"
	"log/slog"

	"github.com/graph-gophers/graphql-go"

	"bookshelf/internal/auth"
	"bookshelf/internal/library"
	"bookshelf/internal/logger"
	"bookshelf/internal/pubsub"
	"bookshelf/internal/response"
	"bookshelf/internal/storage/authors"
	"bookshelf/internal/storage/books"
	"bookshelf/internal/storage/users"
	"bookshelf/internal/types"
)

//go:embed schema.graphql
var schemaSDL string

// Resolver is the root resolver holding every Query, Mutation and Subscription field
type Resolver struct {
	Authors authors.Repository
	Books   books.Repository
	Users   users.Repository
	Tokens  *auth.Tokens
	Events  *pubsub.Bus[types.BookAdded]

	// LoginPassword is the single password login accepts, for every user
	LoginPassword string

	Responder *response.Responder
	Logger    *slog.Logger

	library *library.Library
}

// NewSchema parses the schema and binds r to it. Missing Responder, Logger and Events get
// defaults.
func NewSchema(r *Resolver) (*graphql.Schema, error) {
	if r.Logger == nil {
		r.Logger = slog.Default()
	}
	if r.Events == nil {
		r.Events = pubsub.New[types.BookAdded](pubsub.DefaultBufferSize, r.Logger)
	}
	if r.Responder == nil {
		r.Responder = &response.Responder{}
	}

	r.library = &library.Library{Authors: r.Authors, Books: r.Books, Events: r.Events}

	return graphql.ParseSchema(schemaSDL, r,
		graphql.Logger(logger.GraphQLPanics{Logger: r.Logger}),
	)
}
