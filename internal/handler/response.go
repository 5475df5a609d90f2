// Package handler is the HTTP layer of flashdeck. Handlers decode requests,
// call one service method and encode the result; they hold no business
// rules.
//
// Every error response has the same shape:
//
//	{"error": "not_found", "message": "Deck not found"}
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/auth"
)

// DeckPasswordHeader carries the plaintext password for protected decks.
const DeckPasswordHeader = "X-Deck-Password"

// maxBodyBytes caps request bodies. A full deck update is well under 8KB;
// a card with both sides at the limit is about 16KB of UTF-8.
const maxBodyBytes = 64 << 10

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeJSON must run before anything else writes to w: headers are frozen
// by the first Write.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps an apperror kind to its status. Anything else is an
// opaque 500 so driver messages never reach clients.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status, kind := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, apperror.ErrBadRequest):
		status, kind = http.StatusBadRequest, "bad_request"
	case errors.Is(err, apperror.ErrValidation):
		status, kind = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		status, kind = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status, kind = http.StatusConflict, "conflict"
	}

	writeJSON(w, status, ErrorResponse{
		Error:   kind,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// logFailure logs errors that will surface as a 500. Expected outcomes
// (not found, forbidden...) are not logged.
func logFailure(logger *slog.Logger, r *http.Request, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return
	}
	logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
}

// decodeBody decodes a JSON body into v. An empty body decodes as {}.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.BadRequest("request body too large")
		}
		return apperror.BadRequest("invalid JSON body")
	}
	return nil
}

// decodeFields decodes a JSON object into its raw fields. The model
// allow-lists are applied to the result, not to a typed struct, so that
// unknown keys can never reach a store.
func decodeFields(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, error) {
	raw := map[string]json.RawMessage{}
	if err := decodeBody(w, r, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// requester returns the authenticated user id, or "" for anonymous.
func requester(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

func deckPassword(r *http.Request) string {
	return r.Header.Get(DeckPasswordHeader)
}
