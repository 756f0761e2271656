package authors

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
	return &mongoRepo{c: db.Collection("authors"), l: l}
}

type mongoRepo struct {
	c *mongo.Collection
	l *slog.Logger
}

type mongoAuthor struct {
	Id    primitive.ObjectID   `bson:"_id,omitempty"`
	Name  string               `bson:"name"`
	Born  *int32               `bson:"born,omitempty"`
	Books []primitive.ObjectID `bson:"books"`
}

func (a *mongoAuthor) intoCommon() *types.Author {
	books := make([]string, 0, len(a.Books))
	for _, id := range a.Books {
		books = append(books, id.Hex())
	}

	return &types.Author{
		Id:    a.Id.Hex(),
		Name:  a.Name,
		Born:  a.Born,
		Books: books,
	}
}

func (m *mongoRepo) findOne(ctx context.Context, filter bson.M) (*types.Author, error) {
	var row mongoAuthor

	err := m.c.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})).Decode(&row)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = nil
		}
		return nil, err
	}

	return row.intoCommon(), nil
}

func (m *mongoRepo) find(ctx context.Context, filter bson.M) ([]*types.Author, error) {
	cur, err := m.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}

	var rows []mongoAuthor
	if err = cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	ret := make([]*types.Author, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, row.intoCommon())
	}

	return ret, nil
}

func (m *mongoRepo) GetById(ctx context.Context, id string) (*types.Author, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	return m.findOne(ctx, bson.M{"_id": oid})
}

func (m *mongoRepo) GetByName(ctx context.Context, name string) (*types.Author, error) {
	return m.findOne(ctx, bson.M{"name": name})
}

func (m *mongoRepo) GetByIds(ctx context.Context, ids ...string) (map[string]*types.Author, error) {
	oids := objectIds(m.l, ctx, ids)
	if len(oids) == 0 {
		return make(map[string]*types.Author), nil
	}

	rows, err := m.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, err
	}

	ret := make(map[string]*types.Author, len(rows))
	for _, row := range rows {
		ret[row.Id] = row
	}

	return ret, nil
}

func (m *mongoRepo) GetAll(ctx context.Context) ([]*types.Author, error) {
	return m.find(ctx, bson.M{})
}

func (m *mongoRepo) Count(ctx context.Context) (int64, error) {
	return m.c.CountDocuments(ctx, bson.M{})
}

func (m *mongoRepo) Save(ctx context.Context, author *types.Author) error {
	if err := types.Validate("author", author); err != nil {
		return err
	}

	if author.Id == "" {
		res, err := m.c.InsertOne(ctx, mongoAuthor{
			Name:  author.Name,
			Born:  author.Born,
			Books: make([]primitive.ObjectID, 0),
		})
		if err != nil {
			return err
		}

		author.Id = res.InsertedID.(primitive.ObjectID).Hex()
		if author.Books == nil {
			author.Books = make([]string, 0)
		}
		return nil
	}

	oid, err := primitive.ObjectIDFromHex(author.Id)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{"name": author.Name}}
	if author.Born != nil {
		update["$set"].(bson.M)["born"] = *author.Born
	} else {
		update["$unset"] = bson.M{"born": ""}
	}

	_, err = m.c.UpdateByID(ctx, oid, update)
	return err
}

// AppendBook uses $push, so the list update itself is atomic per document
func (m *mongoRepo) AppendBook(ctx context.Context, authorId, bookId string) error {
	aid, err := primitive.ObjectIDFromHex(authorId)
	if err != nil {
		return err
	}

	bid, err := primitive.ObjectIDFromHex(bookId)
	if err != nil {
		return err
	}

	_, err = m.c.UpdateByID(ctx, aid, bson.M{"$push": bson.M{"books": bid}})
	return err
}

func objectIds(l *slog.Logger, ctx context.Context, ids []string) []primitive.ObjectID {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			l.WarnContext(ctx, "Skipping malformed author id "+id+": "+err.Error())
			continue
		}
		oids = append(oids, oid)
	}
	return oids
}
