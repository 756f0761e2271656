package authors

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

func (s *sqliteRepo) selectAuthors() squirrel.SelectBuilder {
	return s.sq.Select("id", "name", "born").
		From("author").
		OrderBy("rowid")
}

// query runs q and attaches book ids. Rows are drained before the second query runs,
// the pool may hold a single connection.
func (s *sqliteRepo) query(ctx context.Context, q squirrel.SelectBuilder) ([]*types.Author, error) {
	query, params, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	ret, err := func() ([]*types.Author, error) {
		rows, err := s.db.QueryContext(ctx, query, params...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var ret []*types.Author
		for rows.Next() {
			var (
				a    types.Author
				born sql.NullInt32
			)
			if err := rows.Scan(&a.Id, &a.Name, &born); err != nil {
				return nil, err
			}
			if born.Valid {
				a.Born = &born.Int32
			}
			a.Books = make([]string, 0)
			ret = append(ret, &a)
		}

		return ret, rows.Err()
	}()
	if err != nil || len(ret) == 0 {
		return ret, err
	}

	return ret, s.attachBooks(ctx, ret)
}

func (s *sqliteRepo) attachBooks(ctx context.Context, authors []*types.Author) error {
	byId := lo.KeyBy(authors, func(a *types.Author) string { return a.Id })

	query, params, err := s.sq.Select("author_id", "book_id").
		From("author_book").
		Where(squirrel.Eq{"author_id": lo.Keys(byId)}).
		OrderBy("rowid").
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
		var authorId, bookId string
		if err := rows.Scan(&authorId, &bookId); err != nil {
			return err
		}
		if a, ok := byId[authorId]; ok {
			a.Books = append(a.Books, bookId)
		}
	}

	return rows.Err()
}

func (s *sqliteRepo) getOne(ctx context.Context, where squirrel.Sqlizer) (*types.Author, error) {
	rows, err := s.query(ctx, s.selectAuthors().Where(where).Limit(1))
	if err != nil || len(rows) == 0 {
		return nil, err
	}

	return rows[0], nil
}

func (s *sqliteRepo) GetById(ctx context.Context, id string) (*types.Author, error) {
	return s.getOne(ctx, squirrel.Eq{"id": id})
}

func (s *sqliteRepo) GetByName(ctx context.Context, name string) (*types.Author, error) {
	return s.getOne(ctx, squirrel.Eq{"name": name})
}

func (s *sqliteRepo) GetByIds(ctx context.Context, ids ...string) (map[string]*types.Author, error) {
	if len(ids) == 0 {
		return make(map[string]*types.Author), nil
	}

	rows, err := s.query(ctx, s.selectAuthors().Where(squirrel.Eq{"id": ids}))
	if err != nil {
		return nil, err
	}

	return lo.KeyBy(rows, func(a *types.Author) string { return a.Id }), nil
}

func (s *sqliteRepo) GetAll(ctx context.Context) ([]*types.Author, error) {
	rows, err := s.query(ctx, s.selectAuthors())
	if rows == nil && err == nil {
		rows = make([]*types.Author, 0)
	}
	return rows, err
}

func (s *sqliteRepo) Count(ctx context.Context) (int64, error) {
	query, params, err := s.sq.Select("count(*)").From("author").ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	err = s.db.QueryRowContext(ctx, query, params...).Scan(&count)
	return count, err
}

func (s *sqliteRepo) Save(ctx context.Context, author *types.Author) error {
	if err := types.Validate("author", author); err != nil {
		return err
	}

	if author.Id == "" {
		id := uuid.NewString()

		query, params, err := s.sq.Insert("author").
			Columns("id", "name", "born").
			Values(id, author.Name, nullableInt(author.Born)).
			ToSql()
		if err != nil {
			return err
		}

		if _, err = s.db.ExecContext(ctx, query, params...); err != nil {
			return err
		}

		author.Id = id
		if author.Books == nil {
			author.Books = make([]string, 0)
		}
		return nil
	}

	query, params, err := s.sq.Update("author").
		Set("name", author.Name).
		Set("born", nullableInt(author.Born)).
		Where(squirrel.Eq{"id": author.Id}).
		ToSql()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, params...)
	return err
}

func (s *sqliteRepo) AppendBook(ctx context.Context, authorId, bookId string) error {
	query, params, err := s.sq.Insert("author_book").
		Columns("author_id", "book_id").
		Values(authorId, bookId).
		ToSql()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, params...)
	return err
}
