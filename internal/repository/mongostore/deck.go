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

var _ repository.DeckRepository = (*DeckCollection)(nil)

type DeckCollection struct {
	coll *mongo.Collection
}

func (c *DeckCollection) Create(ctx context.Context, deck *model.Deck) error {
	deck.ID = xid.New().String()
	deck.Version = 1
	now := time.Now().UTC().Truncate(time.Millisecond)
	deck.CreatedAt = now
	deck.UpdatedAt = now
	deck.Cards = nonNil(deck.Cards)

	if _, err := c.coll.InsertOne(ctx, deck); err != nil {
		return fmt.Errorf("mongostore: creating deck: %w", err)
	}
	return nil
}

func (c *DeckCollection) GetByID(ctx context.Context, id string) (*model.Deck, error) {
	var deck model.Deck
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&deck)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFoundMsg("Deck not found")
		}
		return nil, fmt.Errorf("mongostore: getting deck %s: %w", id, err)
	}
	deck.Cards = nonNil(deck.Cards)
	return &deck, nil
}

func (c *DeckCollection) GetMany(ctx context.Context, ids []string) ([]model.Deck, error) {
	decks := []model.Deck{}
	if len(ids) == 0 {
		return decks, nil
	}

	cur, err := c.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("mongostore: getting decks: %w", err)
	}
	if err := cur.All(ctx, &decks); err != nil {
		return nil, fmt.Errorf("mongostore: decoding decks: %w", err)
	}
	for i := range decks {
		decks[i].Cards = nonNil(decks[i].Cards)
	}
	return decks, nil
}

// ListSummaries projects cardsCount with $size so the count is computed
// server side from the current card array.
func (c *DeckCollection) ListSummaries(ctx context.Context, filter repository.DeckFilter) ([]model.DeckSummary, error) {
	match := bson.M{"owner": filter.OwnerID}
	if filter.PublicOnly {
		match["visibleTo"] = model.AccessPublic
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$project", Value: bson.M{
			"title":       1,
			"description": 1,
			"cardsCount":  bson.M{"$size": bson.M{"$ifNull": bson.A{"$cards", bson.A{}}}},
		}}},
	}

	cur, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongostore: listing decks: %w", err)
	}
	summaries := []model.DeckSummary{}
	if err := cur.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("mongostore: decoding deck summaries: %w", err)
	}
	return summaries, nil
}

func (c *DeckCollection) Update(ctx context.Context, deck *model.Deck) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	res, err := c.coll.UpdateOne(ctx,
		bson.M{"_id": deck.ID, "version": deck.Version},
		bson.M{
			"$set": bson.M{
				"title":       deck.Title,
				"description": deck.Description,
				"visibleTo":   deck.VisibleTo,
				"editableBy":  deck.EditableBy,
				"password":    deck.Password,
				"cards":       nonNil(deck.Cards),
				"updatedAt":   now,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("mongostore: updating deck %s: %w", deck.ID, err)
	}
	if err := checkVersioned(ctx, c.coll, res, "deck", deck.ID); err != nil {
		return err
	}

	deck.Version++
	deck.UpdatedAt = now
	return nil
}

func (c *DeckCollection) Delete(ctx context.Context, id string) error {
	if _, err := c.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("mongostore: deleting deck %s: %w", id, err)
	}
	return nil
}
