package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/flashdeck/internal/access"
	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/repository"
)

// CardService creates, reads and deletes cards. Access to a card is access
// to the deck it is used through.
type CardService struct {
	cards  repository.CardRepository
	decks  repository.DeckRepository
	policy *access.Policy
	logger *slog.Logger
}

func NewCardService(store repository.Store, passwords access.Verifier, logger *slog.Logger) *CardService {
	return &CardService{
		cards:  store.Cards(),
		decks:  store.Decks(),
		policy: access.NewPolicy(passwords),
		logger: logger,
	}
}

// CreateCard stores a card and appends it to the deck. If the deck changed
// underneath, the new card is deleted again and the Conflict returned.
func (s *CardService) CreateCard(ctx context.Context, deckID string, fields model.CardFields, requesterID, password string) (*model.Card, error) {
	if err := requireUser(requesterID); err != nil {
		return nil, err
	}

	front := strings.TrimSpace(fields.Front)
	back := strings.TrimSpace(fields.Back)
	if front == "" {
		return nil, apperror.ValidationFailed("front", "front cannot be blank")
	}
	if err := checkCardSide("front", front); err != nil {
		return nil, err
	}
	if err := checkCardSide("back", back); err != nil {
		return nil, err
	}

	deck, err := s.decks.GetByID(ctx, deckID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanWrite(deck, requesterID, password) {
		return nil, apperror.Forbidden("You do not have permission to edit this deck")
	}

	card := &model.Card{
		DeckID: deck.ID,
		Owner:  requesterID,
		Front:  front,
		Back:   back,
	}
	if err := s.cards.Create(ctx, card); err != nil {
		return nil, fmt.Errorf("creating card: %w", err)
	}

	deck.Cards = append(deck.Cards, card.ID)
	if err := s.decks.Update(ctx, deck); err != nil {
		if delErr := s.cards.Delete(ctx, card.ID); delErr != nil {
			s.logger.Error("failed to remove orphaned card",
				slog.String("card", card.ID),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, err
	}

	s.logger.Info("card created",
		slog.String("id", card.ID),
		slog.String("deck", deck.ID),
	)
	return card, nil
}

// GetCard returns the card if the deck it was created in is readable.
func (s *CardService) GetCard(ctx context.Context, cardID, requesterID, password string) (*model.Card, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}

	deck, err := s.decks.GetByID(ctx, card.DeckID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMsg("Card not found")
		}
		return nil, err
	}
	if !s.policy.CanRead(deck, requesterID, password) {
		return nil, readDenied(deck)
	}
	return card, nil
}

// DeleteCard unlinks the card from the deck. The card document itself is
// deleted only when this is the deck it was created in; a card reordered
// into another deck keeps living in its home deck.
func (s *CardService) DeleteCard(ctx context.Context, deckID, cardID, requesterID, password string) error {
	if err := requireUser(requesterID); err != nil {
		return err
	}

	deck, err := s.decks.GetByID(ctx, deckID)
	if err != nil {
		return err
	}
	if !s.policy.CanWrite(deck, requesterID, password) {
		return apperror.Forbidden("You do not have permission to edit this deck")
	}

	remaining, linked := model.RemoveID(deck.Cards, cardID)
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	home := card != nil && card.DeckID == deck.ID
	if !linked && !home {
		return apperror.NotFoundMsg("Card not found")
	}

	if linked {
		deck.Cards = remaining
		if err := s.decks.Update(ctx, deck); err != nil {
			return err
		}
	}
	if home {
		if err := s.cards.Delete(ctx, cardID); err != nil {
			return fmt.Errorf("deleting card %s: %w", cardID, err)
		}
	}

	s.logger.Info("card deleted",
		slog.String("id", cardID),
		slog.String("deck", deck.ID),
	)
	return nil
}

func checkCardSide(field, value string) error {
	if utf8.RuneCountInString(value) > model.MaxCardSideLength {
		return apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be %d characters or less", field, model.MaxCardSideLength))
	}
	return nil
}
