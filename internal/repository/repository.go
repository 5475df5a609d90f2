// Package repository declares the entity store interfaces. Services depend
// on these; internal/repository/sqlite and internal/repository/mongostore
// implement them.
//
// CONCURRENCY CONTRACT:
// Update methods on decks and folders are conditional on the Version field
// of the value passed in. If the stored version differs, the write is
// refused with apperror.ErrConflict and nothing changes. On success the
// passed value's Version and UpdatedAt are advanced to the stored values.
package repository

import (
	"context"

	"github.com/sakif/flashdeck/internal/model"
)

// DeckFilter selects decks for ListSummaries.
type DeckFilter struct {
	OwnerID    string
	PublicOnly bool // only decks with visibleTo == PUBLIC
}

type DeckRepository interface {
	// Create assigns ID, Version and timestamps.
	Create(ctx context.Context, deck *model.Deck) error
	// GetByID returns apperror.ErrNotFound if the deck does not exist.
	GetByID(ctx context.Context, id string) (*model.Deck, error)
	// GetMany returns the decks that exist among ids, in no particular order.
	GetMany(ctx context.Context, ids []string) ([]model.Deck, error)
	// ListSummaries returns newest first; CardsCount is computed by the query.
	ListSummaries(ctx context.Context, filter DeckFilter) ([]model.DeckSummary, error)
	Update(ctx context.Context, deck *model.Deck) error
	// Delete is idempotent: a missing id is not an error.
	Delete(ctx context.Context, id string) error
}

type FolderRepository interface {
	Create(ctx context.Context, folder *model.Folder) error
	GetByID(ctx context.Context, id string) (*model.Folder, error)
	ListSummaries(ctx context.Context, ownerID string) ([]model.FolderSummary, error)
	Update(ctx context.Context, folder *model.Folder) error
	Delete(ctx context.Context, id string) error
	// RemoveDeckEverywhere drops deckID from every folder that lists it.
	RemoveDeckEverywhere(ctx context.Context, deckID string) error
}

type CardRepository interface {
	Create(ctx context.Context, card *model.Card) error
	GetByID(ctx context.Context, id string) (*model.Card, error)
	GetMany(ctx context.Context, ids []string) ([]model.Card, error)
	Delete(ctx context.Context, id string) error
}

// UserRepository is the user directory.
type UserRepository interface {
	// Upsert inserts or updates by GitHubID and fills in ID and timestamps.
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// Store bundles the repositories of one backend.
type Store interface {
	Decks() DeckRepository
	Folders() FolderRepository
	Cards() CardRepository
	Users() UserRepository
	Close() error
}
