package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/flashdeck/internal/access"
	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/auth"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/repository"
)

// DeckService implements listing, creation, retrieval, update, deletion and
// card reordering of decks.
type DeckService struct {
	decks     repository.DeckRepository
	folders   repository.FolderRepository
	cards     repository.CardRepository
	users     repository.UserRepository
	passwords PasswordHasher
	policy    *access.Policy
	logger    *slog.Logger
}

func NewDeckService(store repository.Store, passwords PasswordHasher, logger *slog.Logger) *DeckService {
	return &DeckService{
		decks:     store.Decks(),
		folders:   store.Folders(),
		cards:     store.Cards(),
		users:     store.Users(),
		passwords: passwords,
		policy:    access.NewPolicy(passwords),
		logger:    logger,
	}
}

// ListDecksForUser returns summaries of the target user's decks. The owner
// sees all of them; anyone else only the PUBLIC ones.
func (s *DeckService) ListDecksForUser(ctx context.Context, ref UserRef, requesterID string) ([]model.DeckSummary, error) {
	user, err := resolveUser(ctx, s.users, ref)
	if err != nil {
		return nil, err
	}

	filter := repository.DeckFilter{
		OwnerID:    user.ID,
		PublicOnly: requesterID != user.ID,
	}
	decks, err := s.decks.ListSummaries(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list decks",
			slog.String("owner", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing decks of %s: %w", user.ID, err)
	}
	return decks, nil
}

// CreateDeck creates a deck owned by ownerID. Access modes default to
// PRIVATE, and a protected mode is only accepted together with a password.
func (s *DeckService) CreateDeck(ctx context.Context, fields model.DeckFields, ownerID string) (*model.Deck, error) {
	if err := requireUser(ownerID); err != nil {
		return nil, err
	}

	deck := &model.Deck{
		Owner:      ownerID,
		VisibleTo:  model.AccessPrivate,
		EditableBy: model.AccessPrivate,
		Cards:      []string{},
	}

	var title string
	if fields.Title != nil {
		title = *fields.Title
	}
	title, err := model.NormalizeTitle(title)
	if err != nil {
		return nil, err
	}
	deck.Title = title

	if fields.Description != nil {
		deck.Description = strings.TrimSpace(*fields.Description)
	}
	if err := s.applyModes(deck, fields); err != nil {
		return nil, err
	}
	if fields.Password != nil {
		if err := s.setPassword(deck, *fields.Password); err != nil {
			return nil, err
		}
	}
	if err := access.CheckProtection(deck.HasPassword(), deck.VisibleTo, deck.EditableBy); err != nil {
		return nil, err
	}

	if err := s.decks.Create(ctx, deck); err != nil {
		s.logger.Error("failed to create deck",
			slog.String("owner", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating deck: %w", err)
	}

	s.logger.Info("deck created",
		slog.String("id", deck.ID),
		slog.String("owner", ownerID),
		slog.String("visibleTo", deck.VisibleTo.String()),
	)
	return deck, nil
}

// GetDeck returns the deck with its cards resolved in deck order. Card ids
// that no longer resolve are skipped.
func (s *DeckService) GetDeck(ctx context.Context, deckID, requesterID, password string) (*model.DeckDetail, error) {
	deck, err := s.decks.GetByID(ctx, deckID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanRead(deck, requesterID, password) {
		return nil, readDenied(deck)
	}

	found, err := s.cards.GetMany(ctx, deck.Cards)
	if err != nil {
		return nil, fmt.Errorf("loading cards of deck %s: %w", deck.ID, err)
	}
	byID := make(map[string]model.Card, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	cards := make([]model.Card, 0, len(deck.Cards))
	for _, id := range deck.Cards {
		if c, ok := byID[id]; ok {
			cards = append(cards, c)
		}
	}
	return &model.DeckDetail{Deck: deck, Cards: cards}, nil
}

// UpdateDeck replaces the supplied fields of the deck.
//
// A supplied password is hashed before the protection invariant is
// checked, so setting a password and PASSWORD_PROTECTED in one call works.
// An empty password clears the stored one. Access settings are owner-only
// even on decks that others may edit.
func (s *DeckService) UpdateDeck(ctx context.Context, deckID string, fields model.DeckFields, requesterID, password string) (*model.Deck, error) {
	if err := requireUser(requesterID); err != nil {
		return nil, err
	}

	deck, err := s.decks.GetByID(ctx, deckID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanWrite(deck, requesterID, password) {
		return nil, apperror.Forbidden("You do not have permission to edit this deck")
	}
	if fields.TouchesSettings() && !access.IsOwner(deck, requesterID) {
		return nil, apperror.Forbidden("Only the deck owner can change access settings")
	}

	next := *deck
	if fields.Password != nil {
		if err := s.setPassword(&next, *fields.Password); err != nil {
			return nil, err
		}
	}
	if err := s.applyModes(&next, fields); err != nil {
		return nil, err
	}
	if access.CheckProtection(next.HasPassword(), next.VisibleTo, next.EditableBy) != nil {
		return nil, apperror.BadRequest(access.MsgNoPassword)
	}

	if fields.Title != nil {
		title, err := model.NormalizeTitle(*fields.Title)
		if err != nil {
			return nil, err
		}
		next.Title = title
	}
	if fields.Description != nil {
		next.Description = strings.TrimSpace(*fields.Description)
	}

	if err := s.decks.Update(ctx, &next); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to update deck",
				slog.String("id", deckID),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	s.logger.Info("deck updated",
		slog.String("id", next.ID),
		slog.Int64("version", next.Version),
	)
	if !s.policy.CanRead(&next, requesterID, password) {
		return writeOnlyView(&next, fields), nil
	}
	return &next, nil
}

// writeOnlyView is what an editor who cannot read the deck gets back: the
// deck's identity and settings, the fields they just wrote, and no cards.
func writeOnlyView(d *model.Deck, fields model.DeckFields) *model.Deck {
	out := &model.Deck{
		ID:         d.ID,
		Owner:      d.Owner,
		VisibleTo:  d.VisibleTo,
		EditableBy: d.EditableBy,
		Password:   d.Password,
		Cards:      []string{},
		Version:    d.Version,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	if fields.Title != nil {
		out.Title = d.Title
	}
	if fields.Description != nil {
		out.Description = d.Description
	}
	return out
}

// DeleteDeck deletes the deck and removes it from every folder. Deleting a
// deck that does not exist succeeds.
func (s *DeckService) DeleteDeck(ctx context.Context, deckID, requesterID string) error {
	if err := requireUser(requesterID); err != nil {
		return err
	}

	deck, err := s.decks.GetByID(ctx, deckID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return err
	}
	if !access.IsOwner(deck, requesterID) {
		return apperror.Forbidden("Only the deck owner can delete this deck")
	}

	// Folder references go first: the SQLite schema cascades them anyway,
	// the document store does not.
	if err := s.folders.RemoveDeckEverywhere(ctx, deck.ID); err != nil {
		return fmt.Errorf("removing deck %s from folders: %w", deck.ID, err)
	}
	if err := s.decks.Delete(ctx, deck.ID); err != nil {
		s.logger.Error("failed to delete deck",
			slog.String("id", deck.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting deck %s: %w", deck.ID, err)
	}

	s.logger.Info("deck deleted", slog.String("id", deck.ID))
	return nil
}

// ReorderCards moves cardID to position index of the deck's card list and
// returns the moved card. See model.MoveCard for the placement rule.
//
// index is a pointer so that 0 is a valid position and "absent" is not.
func (s *DeckService) ReorderCards(ctx context.Context, deckID, cardID string, index *int, requesterID, password string) (*model.Card, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" || index == nil {
		return nil, apperror.BadRequest("cardId and index are required")
	}
	if *index < 0 {
		return nil, apperror.BadRequest("index must not be negative")
	}
	if err := requireUser(requesterID); err != nil {
		return nil, err
	}

	deck, err := s.decks.GetByID(ctx, deckID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanWrite(deck, requesterID, password) {
		return nil, apperror.Forbidden("You do not have permission to edit this deck")
	}

	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if !model.ContainsID(deck.Cards, card.ID) {
		if err := s.checkCardSource(ctx, deck, card, requesterID, password); err != nil {
			return nil, err
		}
	}

	deck.Cards = model.MoveCard(deck.Cards, card.ID, *index)
	if err := s.decks.Update(ctx, deck); err != nil {
		return nil, err
	}

	s.logger.Info("cards reordered",
		slog.String("deck", deck.ID),
		slog.String("card", card.ID),
		slog.Int("index", *index),
	)
	return card, nil
}

// checkCardSource guards a card being pulled into deck from elsewhere: the
// requester must be able to read the card's home deck, the same rule
// GetCard applies. A card whose home deck is gone is not found.
func (s *DeckService) checkCardSource(ctx context.Context, deck *model.Deck, card *model.Card, requesterID, password string) error {
	if card.DeckID == deck.ID {
		return nil
	}
	home, err := s.decks.GetByID(ctx, card.DeckID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFoundMsg("Card not found")
		}
		return err
	}
	if !s.policy.CanRead(home, requesterID, password) {
		return apperror.Forbidden("You do not have access to this card")
	}
	return nil
}

// applyModes validates and copies the supplied access modes onto deck.
func (s *DeckService) applyModes(deck *model.Deck, fields model.DeckFields) error {
	if fields.VisibleTo != nil {
		if err := model.CheckAccessType("visibleTo", *fields.VisibleTo); err != nil {
			return err
		}
		deck.VisibleTo = *fields.VisibleTo
	}
	if fields.EditableBy != nil {
		if err := model.CheckAccessType("editableBy", *fields.EditableBy); err != nil {
			return err
		}
		deck.EditableBy = *fields.EditableBy
	}
	return nil
}

// setPassword stores the hash of plaintext on deck; "" clears it.
func (s *DeckService) setPassword(deck *model.Deck, plaintext string) error {
	if plaintext == "" {
		deck.Password = ""
		return nil
	}
	hash, err := s.passwords.Hash(plaintext)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return apperror.ValidationFailed("password", err.Error())
		}
		return fmt.Errorf("hashing deck password: %w", err)
	}
	deck.Password = hash
	return nil
}

// readDenied tells a caller of a protected deck that a password would help.
func readDenied(deck *model.Deck) error {
	if deck.VisibleTo == model.AccessPasswordProtected {
		return apperror.Forbidden("This deck is password protected")
	}
	return apperror.Forbidden("You do not have access to this deck")
}
