package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/service"
)

// CardHandler serves card creation and deletion under a deck, and direct
// card lookup under /api/cards.
type CardHandler struct {
	cards  *service.CardService
	logger *slog.Logger
}

func NewCardHandler(cards *service.CardService, logger *slog.Logger) *CardHandler {
	return &CardHandler{cards: cards, logger: logger}
}

// HandleCreate appends a new card to the deck.
//
// HTTP: POST /api/decks/{deckID}/cards  {"front": "...", "back": "..."}
func (h *CardHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var fields model.CardFields
	if err := decodeBody(w, r, &fields); err != nil {
		writeError(w, err)
		return
	}
	card, err := h.cards.CreateCard(r.Context(), chi.URLParam(r, "deckID"), fields, requester(r), deckPassword(r))
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"card": card})
}

// HandleGet: GET /api/cards/{cardID}
func (h *CardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	card, err := h.cards.GetCard(r.Context(), chi.URLParam(r, "cardID"), requester(r), deckPassword(r))
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"card": card})
}

// HandleDelete unlinks a card from the deck, and deletes it when the deck
// is its home.
//
// HTTP: DELETE /api/decks/{deckID}/cards/{cardID}
func (h *CardHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.cards.DeleteCard(r.Context(), chi.URLParam(r, "deckID"), chi.URLParam(r, "cardID"), requester(r), deckPassword(r))
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
