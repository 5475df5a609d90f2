package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/repository"
)

var _ repository.FolderRepository = (*FolderCollection)(nil)

type FolderCollection struct {
	coll *mongo.Collection
}

func (c *FolderCollection) Create(ctx context.Context, folder *model.Folder) error {
	folder.ID = xid.New().String()
	folder.Version = 1
	now := time.Now().UTC().Truncate(time.Millisecond)
	folder.CreatedAt = now
	folder.UpdatedAt = now
	folder.Decks = nonNil(folder.Decks)

	if _, err := c.coll.InsertOne(ctx, folder); err != nil {
		return fmt.Errorf("mongostore: creating folder: %w", err)
	}
	return nil
}

func (c *FolderCollection) GetByID(ctx context.Context, id string) (*model.Folder, error) {
	var f model.Folder
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&f)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFoundMsg("Folder not found")
		}
		return nil, fmt.Errorf("mongostore: getting folder %s: %w", id, err)
	}
	f.Decks = nonNil(f.Decks)
	return &f, nil
}

func (c *FolderCollection) ListSummaries(ctx context.Context, ownerID string) ([]model.FolderSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"owner": ownerID}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$project", Value: bson.M{
			"title":       1,
			"description": 1,
			"decksCount":  bson.M{"$size": bson.M{"$ifNull": bson.A{"$decks", bson.A{}}}},
		}}},
	}

	cur, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongostore: listing folders: %w", err)
	}
	summaries := []model.FolderSummary{}
	if err := cur.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("mongostore: decoding folder summaries: %w", err)
	}
	return summaries, nil
}

func (c *FolderCollection) Update(ctx context.Context, folder *model.Folder) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	res, err := c.coll.UpdateOne(ctx,
		bson.M{"_id": folder.ID, "version": folder.Version},
		bson.M{
			"$set": bson.M{
				"title":       folder.Title,
				"description": folder.Description,
				"decks":       nonNil(folder.Decks),
				"updatedAt":   now,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("mongostore: updating folder %s: %w", folder.ID, err)
	}
	if err := checkVersioned(ctx, c.coll, res, "folder", folder.ID); err != nil {
		return err
	}

	folder.Version++
	folder.UpdatedAt = now
	return nil
}

func (c *FolderCollection) Delete(ctx context.Context, id string) error {
	if _, err := c.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("mongostore: deleting folder %s: %w", id, err)
	}
	return nil
}

// RemoveDeckEverywhere pulls deckID from every folder array in one
// UpdateMany and bumps each touched folder's version.
func (c *FolderCollection) RemoveDeckEverywhere(ctx context.Context, deckID string) error {
	_, err := c.coll.UpdateMany(ctx,
		bson.M{"decks": deckID},
		bson.M{
			"$pull": bson.M{"decks": deckID},
			"$inc":  bson.M{"version": 1},
			"$set":  bson.M{"updatedAt": time.Now().UTC().Truncate(time.Millisecond)},
		},
	)
	if err != nil {
		return fmt.Errorf("mongostore: removing deck %s from folders: %w", deckID, err)
	}
	return nil
}
