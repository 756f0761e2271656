package storage

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"bookshelf/internal/logger"
	"bookshelf/internal/storage/authors"
	"bookshelf/internal/storage/books"
	"bookshelf/internal/storage/users"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS app_user (
		id             text PRIMARY KEY,
		username       text NOT NULL UNIQUE,
		favorite_genre text NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS author (
		id         text PRIMARY KEY,
		name       text NOT NULL,
		born       integer,
		created_at timestamptz NOT NULL DEFAULT clock_timestamp()
	)`,
	`CREATE INDEX IF NOT EXISTS author_name_idx ON author (name)`,
	`CREATE TABLE IF NOT EXISTS book (
		id         text PRIMARY KEY,
		title      text NOT NULL,
		author_id  text NOT NULL,
		published  integer,
		created_at timestamptz NOT NULL DEFAULT clock_timestamp()
	)`,
	`CREATE INDEX IF NOT EXISTS book_author_idx ON book (author_id)`,
	`CREATE TABLE IF NOT EXISTS book_genre (
		book_id     text NOT NULL,
		genre       text NOT NULL,
		genre_order integer NOT NULL,
		PRIMARY KEY (book_id, genre_order)
	)`,
	`CREATE INDEX IF NOT EXISTS book_genre_genre_idx ON book_genre (genre)`,
	`CREATE TABLE IF NOT EXISTS author_book (
		author_id  text NOT NULL,
		book_id    text NOT NULL,
		book_order bigserial,
		PRIMARY KEY (author_id, book_id)
	)`,
}

func openPostgres(ctx context.Context, dsn string, l *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	cfg.ConnConfig.Tracer = logger.NewPGXTracer(l)

	pg, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Storage{
		Backend: BackendPostgres,
		Authors: authors.NewPGXRepository(pg, l),
		Books:   books.NewPGXRepository(pg, l),
		Users:   users.NewPGXRepository(pg, l),
		ping:    pg.Ping,
		migrate: func(ctx context.Context) error {
			for _, stmt := range postgresSchema {
				if _, err := pg.Exec(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		},
		close: func() error {
			pg.Close()
			return nil
		},
	}, nil
}
