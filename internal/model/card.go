package model

import "time"

// Card is a single flashcard. Decks reference cards by ID only.
type Card struct {
	ID        string    `json:"id"        bson:"_id"`
	DeckID    string    `json:"deckId"    bson:"deckId"`
	Owner     string    `json:"owner"     bson:"owner"`
	Front     string    `json:"front"     bson:"front"`
	Back      string    `json:"back"      bson:"back"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// CardFields is the body accepted when creating a card.
type CardFields struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}
