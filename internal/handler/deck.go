package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/service"
)

// deckView is a deck as clients see it. The hash never leaves the server;
// hasPassword tells the UI whether to prompt for one.
type deckView struct {
	*model.Deck
	HasPassword bool `json:"hasPassword"`
}

type deckDetailView struct {
	*model.DeckDetail
	HasPassword bool `json:"hasPassword"`
}

func newDeckView(d *model.Deck) deckView {
	return deckView{Deck: d, HasPassword: d.HasPassword()}
}

// DeckHandler serves /api/decks.
type DeckHandler struct {
	decks  *service.DeckService
	logger *slog.Logger
}

func NewDeckHandler(decks *service.DeckService, logger *slog.Logger) *DeckHandler {
	return &DeckHandler{decks: decks, logger: logger}
}

// HandleList lists a user's decks.
//
// HTTP: GET /api/decks?userId=...  or  ?username=...
func (h *DeckHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ref := service.UserRef{
		ID:       r.URL.Query().Get("userId"),
		Username: r.URL.Query().Get("username"),
	}
	decks, err := h.decks.ListDecksForUser(r.Context(), ref, requester(r))
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decks": decks})
}

// HandleCreate creates a deck owned by the caller.
//
// HTTP: POST /api/decks
func (h *DeckHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	fields, err := h.parseFields(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	deck, err := h.decks.CreateDeck(r.Context(), fields, requester(r))
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"deck": newDeckView(deck)})
}

// HandleGet returns one deck with its cards in order.
//
// HTTP: GET /api/decks/{deckID}
func (h *DeckHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.decks.GetDeck(r.Context(), chi.URLParam(r, "deckID"), requester(r), deckPassword(r))
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deck": deckDetailView{DeckDetail: detail, HasPassword: detail.HasPassword()},
	})
}

// HandleUpdate applies a partial update.
//
// HTTP: PATCH /api/decks/{deckID}
func (h *DeckHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	fields, err := h.parseFields(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	deck, err := h.decks.UpdateDeck(r.Context(), chi.URLParam(r, "deckID"), fields, requester(r), deckPassword(r))
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deck": newDeckView(deck)})
}

// HandleDelete removes a deck. Deleting a missing deck succeeds.
//
// HTTP: DELETE /api/decks/{deckID}
func (h *DeckHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.decks.DeleteDeck(r.Context(), chi.URLParam(r, "deckID"), requester(r)); err != nil {
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type reorderRequest struct {
	CardID string `json:"cardId"`
	Index  *int   `json:"index"`
}

// HandleReorder moves a card to a new position in the deck.
//
// HTTP: POST /api/decks/{deckID}/reorder  {"cardId": "...", "index": 2}
func (h *DeckHandler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	card, err := h.decks.ReorderCards(r.Context(), chi.URLParam(r, "deckID"), req.CardID, req.Index, requester(r), deckPassword(r))
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"card": card})
}

func (h *DeckHandler) parseFields(w http.ResponseWriter, r *http.Request) (model.DeckFields, error) {
	raw, err := decodeFields(w, r)
	if err != nil {
		return model.DeckFields{}, err
	}
	return model.ParseDeckFields(raw)
}
