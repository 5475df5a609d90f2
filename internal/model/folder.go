package model

import "time"

// Folder is an ordered collection of deck references owned by a user.
type Folder struct {
	ID          string    `json:"id"          bson:"_id"`
	Title       string    `json:"title"       bson:"title"`
	Description string    `json:"description" bson:"description"`
	Owner       string    `json:"owner"       bson:"owner"`
	Decks       []string  `json:"decks"       bson:"decks"`
	Version     int64     `json:"version"     bson:"version"`
	CreatedAt   time.Time `json:"createdAt"   bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"   bson:"updatedAt"`
}

type FolderSummary struct {
	ID          string `json:"id"          bson:"_id"`
	Title       string `json:"title"       bson:"title"`
	Description string `json:"description" bson:"description"`
	DecksCount  int    `json:"decksCount"  bson:"decksCount"`
}

// FolderDetail is a folder with its decks resolved to summaries.
type FolderDetail struct {
	*Folder
	Decks []DeckSummary `json:"decks"`
}
