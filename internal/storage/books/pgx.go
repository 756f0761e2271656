package books

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

var subGenres = goqu.Select(goqu.L("coalesce(array_agg(genre order by genre_order), '{}')")).
	From("book_genre").
	Where(goqu.C("book_id").Eq(goqu.C("id").Table("book")))

func NewPGXRepository(pg *pgxpool.Pool, l *slog.Logger) Repository {
	return &pgxRepo{pg: pg, g: goqu.Dialect("postgres"), l: l}
}

type pgxRepo struct {
	pg *pgxpool.Pool
	g  goqu.DialectWrapper
	l  *slog.Logger
}

type pgxBook struct {
	Id        string   `db:"id"`
	Title     string   `db:"title"`
	AuthorId  string   `db:"author_id"`
	Published *int32   `db:"published"`
	Genres    []string `db:"genres"`
}

func (b *pgxBook) intoCommon() *types.Book {
	genres := b.Genres
	if genres == nil {
		genres = make([]string, 0)
	}

	return &types.Book{
		Id:        b.Id,
		Title:     b.Title,
		Author:    b.AuthorId,
		Published: b.Published,
		Genres:    genres,
	}
}

func (p *pgxRepo) selectBooks() *goqu.SelectDataset {
	return p.g.From("book").
		Select("id", "title", "author_id", "published", subGenres.As("genres")).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc())
}

func (p *pgxRepo) GetById(ctx context.Context, id string) (*types.Book, error) {
	sql, params, err := p.selectBooks().
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var row pgxBook

	err = pgxscan.Get(ctx, p.pg, &row, sql, params...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		return nil, err
	}

	return row.intoCommon(), nil
}

func (p *pgxRepo) GetByIds(ctx context.Context, ids ...string) (map[string]*types.Book, error) {
	if len(ids) == 0 {
		return make(map[string]*types.Book), nil
	}

	sql, params, err := p.selectBooks().
		Where(goqu.C("id").In(ids)).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxBook

	err = pgxscan.Select(ctx, p.pg, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make(map[string]*types.Book, len(rows))
	for _, row := range rows {
		ret[row.Id] = row.intoCommon()
	}

	return ret, nil
}

func (p *pgxRepo) Search(ctx context.Context, filter Filter) ([]*types.Book, error) {
	qb := p.selectBooks()

	if filter.AuthorId != "" {
		qb = qb.Where(goqu.C("author_id").Eq(filter.AuthorId))
	}

	if filter.Genre != "" {
		qb = qb.Where(goqu.C("id").In(
			goqu.Select("book_id").
				From("book_genre").
				Where(goqu.C("genre").Eq(filter.Genre)),
		))
	}

	sql, params, err := qb.ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxBook

	err = pgxscan.Select(ctx, p.pg, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make([]*types.Book, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, row.intoCommon())
	}

	return ret, nil
}

func (p *pgxRepo) Count(ctx context.Context) (int64, error) {
	sql, params, err := p.g.From("book").
		Select(goqu.COUNT("*")).
		ToSQL()
	if err != nil {
		return 0, err
	}

	var count int64
	err = pgxscan.Get(ctx, p.pg, &count, sql, params...)
	return count, err
}

// Save writes the book row and its genre rows in one transaction
func (p *pgxRepo) Save(ctx context.Context, book *types.Book) error {
	if err := types.Validate("book", book); err != nil {
		return err
	}

	id := uuid.NewString()

	var published any
	if book.Published != nil {
		published = *book.Published
	}

	sql, params, err := p.g.Insert("book").
		Rows(goqu.Record{
			"id":        id,
			"title":     book.Title,
			"author_id": book.Author,
			"published": published,
		}).
		ToSQL()
	if err != nil {
		return err
	}

	type genreRow struct {
		BookId     string `db:"book_id"`
		Genre      string `db:"genre"`
		GenreOrder int32  `db:"genre_order"`
	}

	var genreSql string
	var genreParams []any
	if len(book.Genres) > 0 {
		rows := make([]any, 0, len(book.Genres))
		for ix, genre := range book.Genres {
			rows = append(rows, genreRow{
				BookId:     id,
				Genre:      genre,
				GenreOrder: int32(ix + 1),
			})
		}

		genreSql, genreParams, err = p.g.Insert("book_genre").
			Rows(rows...).
			ToSQL()
		if err != nil {
			return err
		}
	}

	err = pgx.BeginFunc(ctx, p.pg, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, sql, params...); err != nil {
			return err
		}

		if genreSql != "" {
			if _, err := tx.Exec(ctx, genreSql, genreParams...); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	book.Id = id
	if book.Genres == nil {
		book.Genres = make([]string, 0)
	}

	return nil
}
