package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/repository"
)

var _ repository.UserRepository = (*UserCollection)(nil)

type UserCollection struct {
	coll *mongo.Collection
}

// Upsert keys on githubId. $setOnInsert fixes _id and createdAt the first
// time, so later logins only refresh the profile fields.
func (c *UserCollection) Upsert(ctx context.Context, user *model.User) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored model.User
	err := c.coll.FindOneAndUpdate(ctx,
		bson.M{"githubId": user.GitHubID},
		bson.M{
			"$set": bson.M{
				"username":  user.Username,
				"email":     user.Email,
				"avatarUrl": user.AvatarURL,
				"updatedAt": now,
			},
			"$setOnInsert": bson.M{
				"_id":       xid.New().String(),
				"createdAt": now,
			},
		},
		opts,
	).Decode(&stored)
	if err != nil {
		return fmt.Errorf("mongostore: upserting user (githubID=%d): %w", user.GitHubID, err)
	}

	*user = stored
	return nil
}

func (c *UserCollection) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return c.getBy(ctx, bson.M{"_id": id})
}

func (c *UserCollection) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return c.getBy(ctx, bson.M{"username": username})
}

func (c *UserCollection) getBy(ctx context.Context, filter bson.M) (*model.User, error) {
	var u model.User
	err := c.coll.FindOne(ctx, filter).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFoundMsg("User not found")
		}
		return nil, fmt.Errorf("mongostore: getting user: %w", err)
	}
	return &u, nil
}
