package users

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"bookshelf/internal/types"
)

func NewMongoRepository(db *mongo.Database, l *slog.Logger) Repository {
	return &mongoRepo{c: db.Collection("users"), l: l}
}

type mongoRepo struct {
	c *mongo.Collection
	l *slog.Logger
}

type mongoUser struct {
	Id            primitive.ObjectID `bson:"_id,omitempty"`
	Username      string             `bson:"username"`
	FavoriteGenre string             `bson:"favoriteGenre"`
}

func (m *mongoRepo) findOne(ctx context.Context, filter bson.M) (*types.User, error) {
	var row mongoUser

	err := m.c.FindOne(ctx, filter).Decode(&row)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = nil
		}
		return nil, err
	}

	return &types.User{
		Id:            row.Id.Hex(),
		Username:      row.Username,
		FavoriteGenre: row.FavoriteGenre,
	}, nil
}

func (m *mongoRepo) GetById(ctx context.Context, id string) (*types.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	return m.findOne(ctx, bson.M{"_id": oid})
}

func (m *mongoRepo) GetByUsername(ctx context.Context, username string) (*types.User, error) {
	return m.findOne(ctx, bson.M{"username": username})
}

// Save relies on the unique username index created by storage migrations
func (m *mongoRepo) Save(ctx context.Context, user *types.User) error {
	if err := types.Validate("user", user); err != nil {
		return err
	}

	res, err := m.c.InsertOne(ctx, mongoUser{
		Username:      user.Username,
		FavoriteGenre: user.FavoriteGenre,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return types.DuplicateError("username", user.Username)
		}
		return err
	}

	user.Id = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}
