package model

import "time"

// Deck is an ordered collection of card references with an owner and
// access settings.
//
// Password holds a bcrypt hash, never the plaintext, and is never sent to
// clients. Version is the optimistic-concurrency token: stores only accept
// an update whose Version matches the stored one, then increment it.
type Deck struct {
	ID          string     `json:"id"          bson:"_id"`
	Title       string     `json:"title"       bson:"title"`
	Description string     `json:"description" bson:"description"`
	Owner       string     `json:"owner"       bson:"owner"`
	VisibleTo   AccessType `json:"visibleTo"   bson:"visibleTo"`
	EditableBy  AccessType `json:"editableBy"  bson:"editableBy"`
	Password    string     `json:"-"           bson:"password"`
	Cards       []string   `json:"cards"       bson:"cards"`
	Version     int64      `json:"version"     bson:"version"`
	CreatedAt   time.Time  `json:"createdAt"   bson:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"   bson:"updatedAt"`
}

// HasPassword reports whether a password hash is stored.
func (d *Deck) HasPassword() bool {
	return d.Password != ""
}

// DeckSummary is the list projection of a deck. CardsCount is computed by
// the store at query time.
type DeckSummary struct {
	ID          string `json:"id"          bson:"_id"`
	Title       string `json:"title"       bson:"title"`
	Description string `json:"description" bson:"description"`
	CardsCount  int    `json:"cardsCount"  bson:"cardsCount"`
}

// DeckDetail is a deck with its card references resolved, in deck order.
// The outer Cards field shadows Deck.Cards when encoded to JSON.
type DeckDetail struct {
	*Deck
	Cards []Card `json:"cards"`
}
