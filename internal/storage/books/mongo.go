package books

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bookshelf/internal/types"
)

func NewMongoRepository(db *mongo.Database, l *slog.Logger) Repository {
	return &mongoRepo{c: db.Collection("books"), l: l}
}

type mongoRepo struct {
	c *mongo.Collection
	l *slog.Logger
}

type mongoBook struct {
	Id        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Author    primitive.ObjectID `bson:"author"`
	Published *int32             `bson:"published,omitempty"`
	Genres    []string           `bson:"genres"`
}

func (b *mongoBook) intoCommon() *types.Book {
	genres := b.Genres
	if genres == nil {
		genres = make([]string, 0)
	}

	return &types.Book{
		Id:        b.Id.Hex(),
		Title:     b.Title,
		Author:    b.Author.Hex(),
		Published: b.Published,
		Genres:    genres,
	}
}

func (m *mongoRepo) find(ctx context.Context, filter bson.M) ([]*types.Book, error) {
	cur, err := m.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}

	var rows []mongoBook
	if err = cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	ret := make([]*types.Book, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, row.intoCommon())
	}

	return ret, nil
}

func (m *mongoRepo) GetById(ctx context.Context, id string) (*types.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var row mongoBook

	err = m.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&row)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = nil
		}
		return nil, err
	}

	return row.intoCommon(), nil
}

func (m *mongoRepo) GetByIds(ctx context.Context, ids ...string) (map[string]*types.Book, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			m.l.WarnContext(ctx, "Skipping malformed book id "+id+": "+err.Error())
			continue
		}
		oids = append(oids, oid)
	}

	if len(oids) == 0 {
		return make(map[string]*types.Book), nil
	}

	rows, err := m.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, err
	}

	ret := make(map[string]*types.Book, len(rows))
	for _, row := range rows {
		ret[row.Id] = row
	}

	return ret, nil
}

func (m *mongoRepo) Search(ctx context.Context, filter Filter) ([]*types.Book, error) {
	q := bson.M{}

	if filter.AuthorId != "" {
		oid, err := primitive.ObjectIDFromHex(filter.AuthorId)
		if err != nil {
			return make([]*types.Book, 0), nil
		}
		q["author"] = oid
	}

	if filter.Genre != "" {
		q["genres"] = bson.M{"$in": bson.A{filter.Genre}}
	}

	return m.find(ctx, q)
}

func (m *mongoRepo) Count(ctx context.Context) (int64, error) {
	return m.c.CountDocuments(ctx, bson.M{})
}

func (m *mongoRepo) Save(ctx context.Context, book *types.Book) error {
	if err := types.Validate("book", book); err != nil {
		return err
	}

	aid, err := primitive.ObjectIDFromHex(book.Author)
	if err != nil {
		return err
	}

	genres := book.Genres
	if genres == nil {
		genres = make([]string, 0)
	}

	res, err := m.c.InsertOne(ctx, mongoBook{
		Title:     book.Title,
		Author:    aid,
		Published: book.Published,
		Genres:    genres,
	})
	if err != nil {
		return err
	}

	book.Id = res.InsertedID.(primitive.ObjectID).Hex()
	book.Genres = genres

	return nil
}
