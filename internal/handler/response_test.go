package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/flashdeck/internal/apperror"
)

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"bad request", apperror.BadRequest("nope"), http.StatusBadRequest, "bad_request"},
		{"validation", apperror.ValidationFailed("title", "title cannot be blank"), http.StatusBadRequest, "validation_error"},
		{"unauthorized", apperror.Unauthorized("log in"), http.StatusUnauthorized, "unauthorized"},
		{"forbidden", apperror.Forbidden("no"), http.StatusForbidden, "forbidden"},
		{"not found", apperror.NotFoundMsg("Deck not found"), http.StatusNotFound, "not_found"},
		{"conflict", apperror.Conflict("deck", "d1"), http.StatusConflict, "conflict"},
		{"wrapped", fmt.Errorf("ctx: %w", apperror.Forbidden("no")), http.StatusForbidden, "forbidden"},
		{"plain error", errors.New("sql: database is locked"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.kind, body.Error)
			assert.NotEmpty(t, body.Message)
			assert.NotContains(t, body.Message, "database is locked")
		})
	}
}

func TestWriteError_ValidationField(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, apperror.ValidationFailed("password", "password is required"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "password", body.Field)
}
