// Package mongostore implements the repository interfaces on MongoDB.
//
// Documents use string xid values as _id so that ids are interchangeable
// with the SQLite backend. Decks and folders embed their ordered reference
// lists as arrays, and every conditional write filters on {_id, version}.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/repository"
)

var _ repository.Store = (*Store)(nil)

const (
	usersCollection   = "users"
	decksCollection   = "decks"
	cardsCollection   = "cards"
	foldersCollection = "folders"
)

// Store holds a connected client and the database all collections live in.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri, pings the server and makes sure the indexes exist.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connecting: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: pinging: %w", err)
	}

	s := &Store{client: client, db: client.Database(database)}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the indexes the queries rely on. Creating an index
// that already exists is a no-op, so this doubles as the migrate step.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "githubId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		decksCollection: {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "visibleTo", Value: 1}}},
		},
		foldersCollection: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
			{Keys: bson.D{{Key: "decks", Value: 1}}},
		},
		cardsCollection: {
			{Keys: bson.D{{Key: "deckId", Value: 1}}},
		},
	}
	for coll, models := range specs {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongostore: creating %s indexes: %w", coll, err)
		}
	}
	return nil
}

// Drop removes the whole database. Only tests call it.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Decks() repository.DeckRepository {
	return &DeckCollection{coll: s.db.Collection(decksCollection)}
}

func (s *Store) Folders() repository.FolderRepository {
	return &FolderCollection{coll: s.db.Collection(foldersCollection)}
}

func (s *Store) Cards() repository.CardRepository {
	return &CardCollection{coll: s.db.Collection(cardsCollection)}
}

func (s *Store) Users() repository.UserRepository {
	return &UserCollection{coll: s.db.Collection(usersCollection)}
}

// checkVersioned turns a zero-match conditional update into NotFound or
// Conflict depending on whether the document still exists.
func checkVersioned(ctx context.Context, coll *mongo.Collection, res *mongo.UpdateResult, resource, id string) error {
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongostore: checking %s %s exists: %w", resource, id, err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return apperror.Conflict(resource, id)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
