package authors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/doug-martin/goqu/v9"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookshelf/internal/types"
)

var subBooks = goqu.Select(goqu.L("coalesce(array_agg(book_id order by book_order), '{}')")).
	From("author_book").
	Where(goqu.C("author_id").Eq(goqu.C("id").Table("author")))

func NewPGXRepository(pg *pgxpool.Pool, l *slog.Logger) Repository {
	return &pgxRepo{pg: pg, g: goqu.Dialect("postgres"), l: l}
}

type pgxRepo struct {
	pg *pgxpool.Pool
	g  goqu.DialectWrapper
	l  *slog.Logger
}

type pgxAuthor struct {
	Id      string   `db:"id"`
	Name    string   `db:"name"`
	Born    *int32   `db:"born"`
	BookIds []string `db:"book_ids"`
}

func (a *pgxAuthor) intoCommon() *types.Author {
	books := a.BookIds
	if books == nil {
		books = make([]string, 0)
	}

	return &types.Author{
		Id:    a.Id,
		Name:  a.Name,
		Born:  a.Born,
		Books: books,
	}
}

func (p *pgxRepo) selectAuthors() *goqu.SelectDataset {
	return p.g.From("author").
		Select("id", "name", "born", subBooks.As("book_ids")).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc())
}

func (p *pgxRepo) getOne(ctx context.Context, where goqu.Expression) (*types.Author, error) {
	sql, params, err := p.selectAuthors().
		Where(where).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var row pgxAuthor

	err = pgxscan.Get(ctx, p.pg, &row, sql, params...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		return nil, err
	}

	return row.intoCommon(), nil
}

func (p *pgxRepo) GetById(ctx context.Context, id string) (*types.Author, error) {
	return p.getOne(ctx, goqu.C("id").Eq(id))
}

func (p *pgxRepo) GetByName(ctx context.Context, name string) (*types.Author, error) {
	return p.getOne(ctx, goqu.C("name").Eq(name))
}

func (p *pgxRepo) GetByIds(ctx context.Context, ids ...string) (map[string]*types.Author, error) {
	if len(ids) == 0 {
		return make(map[string]*types.Author), nil
	}

	sql, params, err := p.selectAuthors().
		Where(goqu.C("id").In(ids)).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxAuthor

	err = pgxscan.Select(ctx, p.pg, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make(map[string]*types.Author, len(rows))
	for _, row := range rows {
		ret[row.Id] = row.intoCommon()
	}

	return ret, nil
}

func (p *pgxRepo) GetAll(ctx context.Context) ([]*types.Author, error) {
	sql, params, err := p.selectAuthors().ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxAuthor

	err = pgxscan.Select(ctx, p.pg, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make([]*types.Author, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, row.intoCommon())
	}

	return ret, nil
}

func (p *pgxRepo) Count(ctx context.Context) (int64, error) {
	sql, params, err := p.g.From("author").
		Select(goqu.COUNT("*")).
		ToSQL()
	if err != nil {
		return 0, err
	}

	var count int64
	err = pgxscan.Get(ctx, p.pg, &count, sql, params...)
	return count, err
}

func (p *pgxRepo) Save(ctx context.Context, author *types.Author) error {
	if err := types.Validate("author", author); err != nil {
		return err
	}

	if author.Id == "" {
		id := uuid.NewString()

		sql, params, err := p.g.Insert("author").
			Rows(goqu.Record{
				"id":   id,
				"name": author.Name,
				"born": nullableInt(author.Born),
			}).
			ToSQL()
		if err != nil {
			return err
		}

		if _, err = p.pg.Exec(ctx, sql, params...); err != nil {
			return err
		}

		author.Id = id
		if author.Books == nil {
			author.Books = make([]string, 0)
		}
		return nil
	}

	sql, params, err := p.g.Update("author").
		Set(goqu.Record{
			"name": author.Name,
			"born": nullableInt(author.Born),
		}).
		Where(goqu.C("id").Eq(author.Id)).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	return err
}

func (p *pgxRepo) AppendBook(ctx context.Context, authorId, bookId string) error {
	sql, params, err := p.g.Insert("author_book").
		Rows(goqu.Record{
			"author_id": authorId,
			"book_id":   bookId,
		}).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	return err
}

func nullableInt(v *int32) any {
	if v == nil {
		return nil
	}
	return *v
}
