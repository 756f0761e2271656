package books

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/samber/lo"

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

func (s *sqliteRepo) selectBooks() squirrel.SelectBuilder {
	return s.sq.Select("id", "title", "author_id", "published").
		From("book").
		OrderBy("rowid")
}

// query runs q and attaches genres. Rows are drained before the second query runs,
// the pool may hold a single connection.
func (s *sqliteRepo) query(ctx context.Context, q squirrel.SelectBuilder) ([]*types.Book, error) {
	query, params, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	ret, err := func() ([]*types.Book, error) {
		rows, err := s.db.QueryContext(ctx, query, params...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		ret := make([]*types.Book, 0)
		for rows.Next() {
			var (
				b         types.Book
				published sql.NullInt32
			)
			if err := rows.Scan(&b.Id, &b.Title, &b.Author, &published); err != nil {
				return nil, err
			}
			if published.Valid {
				b.Published = &published.Int32
			}
			b.Genres = make([]string, 0)
			ret = append(ret, &b)
		}

		return ret, rows.Err()
	}()
	if err != nil || len(ret) == 0 {
		return ret, err
	}

	return ret, s.attachGenres(ctx, ret)
}

func (s *sqliteRepo) attachGenres(ctx context.Context, books []*types.Book) error {
	byId := lo.KeyBy(books, func(b *types.Book) string { return b.Id })

	query, params, err := s.sq.Select("book_id", "genre").
		From("book_genre").
		Where(squirrel.Eq{"book_id": lo.Keys(byId)}).
		OrderBy("book_id", "genre_order").
		ToSql()
	if err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var bookId, genre string
		if err := rows.Scan(&bookId, &genre); err != nil {
			return err
		}
		if b, ok := byId[bookId]; ok {
			b.Genres = append(b.Genres, genre)
		}
	}

	return rows.Err()
}

func (s *sqliteRepo) GetById(ctx context.Context, id string) (*types.Book, error) {
	rows, err := s.query(ctx, s.selectBooks().Where(squirrel.Eq{"id": id}).Limit(1))
	if err != nil || len(rows) == 0 {
		return nil, err
	}

	return rows[0], nil
}

func (s *sqliteRepo) GetByIds(ctx context.Context, ids ...string) (map[string]*types.Book, error) {
	if len(ids) == 0 {
		return make(map[string]*types.Book), nil
	}

	rows, err := s.query(ctx, s.selectBooks().Where(squirrel.Eq{"id": ids}))
	if err != nil {
		return nil, err
	}

	return lo.KeyBy(rows, func(b *types.Book) string { return b.Id }), nil
}

func (s *sqliteRepo) Search(ctx context.Context, filter Filter) ([]*types.Book, error) {
	qb := s.selectBooks()

	if filter.AuthorId != "" {
		qb = qb.Where(squirrel.Eq{"author_id": filter.AuthorId})
	}

	if filter.Genre != "" {
		qb = qb.Where(squirrel.Expr("id IN (SELECT book_id FROM book_genre WHERE genre = ?)", filter.Genre))
	}

	return s.query(ctx, qb)
}

func (s *sqliteRepo) Count(ctx context.Context) (int64, error) {
	query, params, err := s.sq.Select("count(*)").From("book").ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	err = s.db.QueryRowContext(ctx, query, params...).Scan(&count)
	return count, err
}

// Save writes the book row and its genre rows in one transaction
func (s *sqliteRepo) Save(ctx context.Context, book *types.Book) error {
	if err := types.Validate("book", book); err != nil {
		return err
	}

	id := uuid.NewString()

	var published any
	if book.Published != nil {
		published = *book.Published
	}

	bookSql, bookParams, err := s.sq.Insert("book").
		Columns("id", "title", "author_id", "published").
		Values(id, book.Title, book.Author, published).
		ToSql()
	if err != nil {
		return err
	}

	var genreSql string
	var genreParams []any
	if len(book.Genres) > 0 {
		ib := s.sq.Insert("book_genre").Columns("book_id", "genre", "genre_order")
		for ix, genre := range book.Genres {
			ib = ib.Values(id, genre, ix+1)
		}

		genreSql, genreParams, err = ib.ToSql()
		if err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, bookSql, bookParams...); err != nil {
		return err
	}

	if genreSql != "" {
		if _, err = tx.ExecContext(ctx, genreSql, genreParams...); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	book.Id = id
	if book.Genres == nil {
		book.Genres = make([]string, 0)
	}

	return nil
}
