package storage

import (
	"context"
	"database/sql"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"bookshelf/internal/storage/authors"
	"bookshelf/internal/storage/books"
	"bookshelf/internal/storage/users"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS app_user (
		id             TEXT PRIMARY KEY,
		username       TEXT NOT NULL UNIQUE,
		favorite_genre TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS author (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		born INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS author_name_idx ON author (name)`,
	`CREATE TABLE IF NOT EXISTS book (
		id        TEXT PRIMARY KEY,
		title     TEXT NOT NULL,
		author_id TEXT NOT NULL,
		published INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS book_author_idx ON book (author_id)`,
	`CREATE TABLE IF NOT EXISTS book_genre (
		book_id     TEXT NOT NULL,
		genre       TEXT NOT NULL,
		genre_order INTEGER NOT NULL,
		PRIMARY KEY (book_id, genre_order)
	)`,
	`CREATE INDEX IF NOT EXISTS book_genre_genre_idx ON book_genre (genre)`,
	`CREATE TABLE IF NOT EXISTS author_book (
		author_id TEXT NOT NULL,
		book_id   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS author_book_author_idx ON author_book (author_id)`,
}

// openSQLite accepts a file path, ":memory:" or a file: url
func openSQLite(path string, l *slog.Logger) (*Storage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// One connection keeps writes serialized and an in-memory database alive.
	db.SetMaxOpenConns(1)

	return &Storage{
		Backend: BackendSQLite,
		Authors: authors.NewSQLiteRepository(db, l),
		Books:   books.NewSQLiteRepository(db, l),
		Users:   users.NewSQLiteRepository(db, l),
		ping:    db.PingContext,
		migrate: func(ctx context.Context) error {
			for _, stmt := range sqliteSchema {
				if _, err := db.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		},
		close: db.Close,
	}, nil
}
