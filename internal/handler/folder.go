package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/service"
)

// FolderHandler serves /api/folders.
type FolderHandler struct {
	folders *service.FolderService
	logger  *slog.Logger
}

func NewFolderHandler(folders *service.FolderService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{folders: folders, logger: logger}
}

// HandleList: GET /api/folders?userId=...  or  ?username=...
func (h *FolderHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ref := service.UserRef{
		ID:       r.URL.Query().Get("userId"),
		Username: r.URL.Query().Get("username"),
	}
	folders, err := h.folders.ListFoldersForUser(r.Context(), ref)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

// HandleCreate: POST /api/folders
func (h *FolderHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	fields, err := parseFolderFields(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	folder, err := h.folders.CreateFolder(r.Context(), fields, requester(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"folder": folder})
}

// HandleGet: GET /api/folders/{folderID}
//
// Decks the caller cannot read are left out of the response.
func (h *FolderHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.folders.GetFolder(r.Context(), chi.URLParam(r, "folderID"), requester(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"folder": detail})
}

// HandleUpdate: PATCH /api/folders/{folderID}
func (h *FolderHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	fields, err := parseFolderFields(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	folder, err := h.folders.UpdateFolder(r.Context(), chi.URLParam(r, "folderID"), fields, requester(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"folder": folder})
}

// HandleDelete: DELETE /api/folders/{folderID}
func (h *FolderHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.folders.DeleteFolder(r.Context(), chi.URLParam(r, "folderID"), requester(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type addDeckRequest struct {
	DeckID string `json:"deckId"`
}

// HandleAddDeck: POST /api/folders/{folderID}/decks  {"deckId": "..."}
func (h *FolderHandler) HandleAddDeck(w http.ResponseWriter, r *http.Request) {
	var req addDeckRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	folder, err := h.folders.AddDeck(r.Context(), chi.URLParam(r, "folderID"), req.DeckID, requester(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"folder": folder})
}

// HandleRemoveDeck: DELETE /api/folders/{folderID}/decks/{deckID}
func (h *FolderHandler) HandleRemoveDeck(w http.ResponseWriter, r *http.Request) {
	folder, err := h.folders.RemoveDeck(r.Context(), chi.URLParam(r, "folderID"), chi.URLParam(r, "deckID"), requester(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"folder": folder})
}

func (h *FolderHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	logFailure(h.logger, r, err)
	writeError(w, err)
}

func parseFolderFields(w http.ResponseWriter, r *http.Request) (model.FolderFields, error) {
	raw, err := decodeFields(w, r)
	if err != nil {
		return model.FolderFields{}, err
	}
	return model.ParseFolderFields(raw)
}
