// Package storage opens the persistence backend named by a database url and exposes its
// repositories.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bookshelf/internal/storage/authors"
	"bookshelf/internal/storage/books"
	"bookshelf/internal/storage/users"
)

type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendMongo    Backend = "mongodb"
	BackendSQLite   Backend = "sqlite"
)

var ErrUnsupportedURL = errors.New("unsupported database url")

type Storage struct {
	Backend Backend
	Authors authors.Repository
	Books   books.Repository
	Users   users.Repository

	ping    func(ctx context.Context) error
	migrate func(ctx context.Context) error
	close   func() error
}

// Open picks the backend by the url scheme: postgres:// and postgresql:// for PostgreSQL,
// mongodb:// and mongodb+srv:// for MongoDB, sqlite://<path> or file: for SQLite.
// Connections are established lazily, use Ping to check reachability.
func Open(ctx context.Context, dsn string, l *slog.Logger) (*Storage, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return openPostgres(ctx, dsn, l)
	case strings.HasPrefix(dsn, "mongodb://"), strings.HasPrefix(dsn, "mongodb+srv://"):
		return openMongo(ctx, dsn, l)
	case strings.HasPrefix(dsn, "sqlite://"):
		return openSQLite(strings.TrimPrefix(dsn, "sqlite://"), l)
	case strings.HasPrefix(dsn, "file:"):
		return openSQLite(dsn, l)
	}

	scheme, _, _ := strings.Cut(dsn, ":")
	return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, scheme)
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Migrate creates missing tables, collections and indexes. It is safe to run repeatedly.
func (s *Storage) Migrate(ctx context.Context) error {
	if err := s.migrate(ctx); err != nil {
		return fmt.Errorf("migrating %s schema: %w", s.Backend, err)
	}

	return nil
}

func (s *Storage) Close() error {
	return s.close()
}
