package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sakif/flashdeck/internal/apperror"
)

// Validation constants shared by decks, folders and cards.
const (
	MinTitleLength    = 1
	MaxTitleLength    = 60
	MaxCardSideLength = 2000
)

// ALLOW-LISTS:
// Request bodies are decoded into a raw field map first, then filtered by
// one of these lists before any typed payload is built. Keys not listed
// (owner, cards, version, _id...) are dropped silently, so a client can
// never overwrite them through create or update.
var (
	AllowedDeckFields   = []string{"title", "description", "visibleTo", "editableBy", "password"}
	AllowedFolderFields = []string{"title", "description"}
)

// FilterFields returns the subset of raw whose keys appear in allowed.
func FilterFields(raw map[string]json.RawMessage, allowed []string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(allowed))
	for _, key := range allowed {
		if v, ok := raw[key]; ok {
			out[key] = v
		}
	}
	return out
}

// DeckFields carries the writable deck fields of a create or update request.
// A nil pointer means "not supplied"; updates replace only supplied fields.
type DeckFields struct {
	Title       *string
	Description *string
	VisibleTo   *AccessType
	EditableBy  *AccessType
	Password    *string // plaintext; hashed by the service
}

// TouchesSettings reports whether any access setting is being changed.
// Settings are owner-only even on publicly editable decks.
func (f DeckFields) TouchesSettings() bool {
	return f.VisibleTo != nil || f.EditableBy != nil || f.Password != nil
}

// ParseDeckFields applies AllowedDeckFields to raw and decodes the result.
func ParseDeckFields(raw map[string]json.RawMessage) (DeckFields, error) {
	var f DeckFields
	for key, val := range FilterFields(raw, AllowedDeckFields) {
		s, err := decodeString(key, val)
		if err != nil {
			return DeckFields{}, err
		}
		switch key {
		case "title":
			f.Title = &s
		case "description":
			f.Description = &s
		case "visibleTo":
			a := AccessType(s)
			f.VisibleTo = &a
		case "editableBy":
			a := AccessType(s)
			f.EditableBy = &a
		case "password":
			f.Password = &s
		}
	}
	return f, nil
}

// FolderFields carries the writable folder fields.
type FolderFields struct {
	Title       *string
	Description *string
}

// ParseFolderFields applies AllowedFolderFields to raw and decodes the result.
func ParseFolderFields(raw map[string]json.RawMessage) (FolderFields, error) {
	var f FolderFields
	for key, val := range FilterFields(raw, AllowedFolderFields) {
		s, err := decodeString(key, val)
		if err != nil {
			return FolderFields{}, err
		}
		switch key {
		case "title":
			f.Title = &s
		case "description":
			f.Description = &s
		}
	}
	return f, nil
}

// decodeString decodes a JSON string. null decodes to "".
func decodeString(field string, val json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(val, &s); err != nil {
		return "", apperror.ValidationFailed(field, fmt.Sprintf("%s must be a string", field))
	}
	return s, nil
}

// NormalizeTitle trims title and enforces the 1-60 character bound.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	n := utf8.RuneCountInString(title)
	if n < MinTitleLength {
		return "", apperror.ValidationFailed("title", "title cannot be blank")
	}
	if n > MaxTitleLength {
		return "", apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	return title, nil
}

// CheckAccessType rejects values outside the AccessType set.
func CheckAccessType(field string, a AccessType) error {
	if !a.Valid() {
		return apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be one of PUBLIC, PRIVATE, PASSWORD_PROTECTED", field))
	}
	return nil
}
