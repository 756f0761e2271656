package storage

import (
	"context"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"bookshelf/internal/logger"
	"bookshelf/internal/storage/authors"
	"bookshelf/internal/storage/books"
	"bookshelf/internal/storage/users"
)

const defaultMongoDatabase = "bookshelf"

var mongoIndexes = map[string][]mongo.IndexModel{
	"users": {
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	"authors": {
		{Keys: bson.D{{Key: "name", Value: 1}}},
	},
	"books": {
		{Keys: bson.D{{Key: "author", Value: 1}}},
		{Keys: bson.D{{Key: "genres", Value: 1}}},
	},
}

func openMongo(ctx context.Context, dsn string, l *slog.Logger) (*Storage, error) {
	cs, err := connstring.ParseAndValidate(dsn)
	if err != nil {
		return nil, err
	}

	dbName := cs.Database
	if dbName == "" {
		dbName = defaultMongoDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(dsn).
		SetMonitor(logger.NewMongoMonitor(l)))
	if err != nil {
		return nil, err
	}

	db := client.Database(dbName)

	return &Storage{
		Backend: BackendMongo,
		Authors: authors.NewMongoRepository(db, l),
		Books:   books.NewMongoRepository(db, l),
		Users:   users.NewMongoRepository(db, l),
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		migrate: func(ctx context.Context) error {
			for collection, models := range mongoIndexes {
				if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
					return err
				}
			}
			return nil
		},
		close: func() error {
			return client.Disconnect(context.Background())
		},
	}, nil
}
