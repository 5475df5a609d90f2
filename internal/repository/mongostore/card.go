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

var _ repository.CardRepository = (*CardCollection)(nil)

type CardCollection struct {
	coll *mongo.Collection
}

func (c *CardCollection) Create(ctx context.Context, card *model.Card) error {
	card.ID = xid.New().String()
	now := time.Now().UTC().Truncate(time.Millisecond)
	card.CreatedAt = now
	card.UpdatedAt = now

	if _, err := c.coll.InsertOne(ctx, card); err != nil {
		return fmt.Errorf("mongostore: creating card: %w", err)
	}
	return nil
}

func (c *CardCollection) GetByID(ctx context.Context, id string) (*model.Card, error) {
	var card model.Card
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&card)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFoundMsg("Card not found")
		}
		return nil, fmt.Errorf("mongostore: getting card %s: %w", id, err)
	}
	return &card, nil
}

func (c *CardCollection) GetMany(ctx context.Context, ids []string) ([]model.Card, error) {
	cards := []model.Card{}
	if len(ids) == 0 {
		return cards, nil
	}

	cur, err := c.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("mongostore: getting cards: %w", err)
	}
	if err := cur.All(ctx, &cards); err != nil {
		return nil, fmt.Errorf("mongostore: decoding cards: %w", err)
	}
	return cards, nil
}

func (c *CardCollection) Delete(ctx context.Context, id string) error {
	if _, err := c.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("mongostore: deleting card %s: %w", id, err)
	}
	return nil
}
