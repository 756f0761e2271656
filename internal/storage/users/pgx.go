package users

import (
	"context"
	"errors"
	"log/slog"

	"github.com/doug-martin/goqu/v9"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookshelf/internal/types"
)

const pgUniqueViolation = "23505"

func NewPGXRepository(pg *pgxpool.Pool, l *slog.Logger) Repository {
	return &pgxRepo{pg: pg, g: goqu.Dialect("postgres"), l: l}
}

type pgxRepo struct {
	pg *pgxpool.Pool
	g  goqu.DialectWrapper
	l  *slog.Logger
}

type pgxUser struct {
	Id            string `db:"id"`
	Username      string `db:"username"`
	FavoriteGenre string `db:"favorite_genre"`
}

func (p *pgxRepo) getOne(ctx context.Context, where goqu.Expression) (*types.User, error) {
	sql, params, err := p.g.From("app_user").
		Select("id", "username", "favorite_genre").
		Where(where).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var row pgxUser

	err = pgxscan.Get(ctx, p.pg, &row, sql, params...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		return nil, err
	}

	return &types.User{
		Id:            row.Id,
		Username:      row.Username,
		FavoriteGenre: row.FavoriteGenre,
	}, nil
}

func (p *pgxRepo) GetById(ctx context.Context, id string) (*types.User, error) {
	return p.getOne(ctx, goqu.C("id").Eq(id))
}

func (p *pgxRepo) GetByUsername(ctx context.Context, username string) (*types.User, error) {
	return p.getOne(ctx, goqu.C("username").Eq(username))
}

func (p *pgxRepo) Save(ctx context.Context, user *types.User) error {
	if err := types.Validate("user", user); err != nil {
		return err
	}

	id := uuid.NewString()

	sql, params, err := p.g.Insert("app_user").
		Rows(pgxUser{
			Id:            id,
			Username:      user.Username,
			FavoriteGenre: user.FavoriteGenre,
		}).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return types.DuplicateError("username", user.Username)
		}
		return err
	}

	user.Id = id
	return nil
}
