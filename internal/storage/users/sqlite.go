package users

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"bookshelf/internal/types"
)

func NewSQLiteRepository(db *sql.DB, l *slog.Logger) Repository {
	return &sqliteRepo{db: db, sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question), l: l}
}

type sqliteRepo struct {
	db *sql.DB
	sq squirrel.StatementBuilderType
	l  *slog.Logger
}

func (s *sqliteRepo) getOne(ctx context.Context, where squirrel.Sqlizer) (*types.User, error) {
	query, params, err := s.sq.Select("id", "username", "favorite_genre").
		From("app_user").
		Where(where).
		ToSql()
	if err != nil {
		return nil, err
	}

	var u types.User
	err = s.db.QueryRowContext(ctx, query, params...).Scan(&u.Id, &u.Username, &u.FavoriteGenre)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = nil
		}
		return nil, err
	}

	return &u, nil
}

func (s *sqliteRepo) GetById(ctx context.Context, id string) (*types.User, error) {
	return s.getOne(ctx, squirrel.Eq{"id": id})
}

func (s *sqliteRepo) GetByUsername(ctx context.Context, username string) (*types.User, error) {
	return s.getOne(ctx, squirrel.Eq{"username": username})
}

func (s *sqliteRepo) Save(ctx context.Context, user *types.User) error {
	if err := types.Validate("user", user); err != nil {
		return err
	}

	id := uuid.NewString()

	query, params, err := s.sq.Insert("app_user").
		Columns("id", "username", "favorite_genre").
		Values(id, user.Username, user.FavoriteGenre).
		ToSql()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, params...)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return types.DuplicateError("username", user.Username)
		}
		return err
	}

	user.Id = id
	return nil
}
