package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/flashdeck/internal/auth"
	"github.com/sakif/flashdeck/internal/handler"
	"github.com/sakif/flashdeck/internal/model"
	sqliteRepo "github.com/sakif/flashdeck/internal/repository/sqlite"
	"github.com/sakif/flashdeck/internal/service"
)

// testUserHeader stands in for the session cookie: the test router trusts
// it and puts its value in the request context as the user id.
const testUserHeader = "X-Test-User"

type testEnv struct {
	router http.Handler
	store  *sqliteRepo.DB
	alice  string
	bob    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)
	decks := handler.NewDeckHandler(service.NewDeckService(store, passwords, logger), logger)
	folders := handler.NewFolderHandler(service.NewFolderService(store, passwords, logger), logger)
	cards := handler.NewCardHandler(service.NewCardService(store, passwords, logger), logger)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get(testUserHeader); id != "" {
				r = r.WithContext(auth.WithUserID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Route("/api/decks", func(r chi.Router) {
		r.Get("/", decks.HandleList)
		r.Post("/", decks.HandleCreate)
		r.Get("/{deckID}", decks.HandleGet)
		r.Patch("/{deckID}", decks.HandleUpdate)
		r.Delete("/{deckID}", decks.HandleDelete)
		r.Post("/{deckID}/reorder", decks.HandleReorder)
		r.Post("/{deckID}/cards", cards.HandleCreate)
		r.Delete("/{deckID}/cards/{cardID}", cards.HandleDelete)
	})
	r.Get("/api/cards/{cardID}", cards.HandleGet)
	r.Route("/api/folders", func(r chi.Router) {
		r.Get("/", folders.HandleList)
		r.Post("/", folders.HandleCreate)
		r.Get("/{folderID}", folders.HandleGet)
		r.Patch("/{folderID}", folders.HandleUpdate)
		r.Delete("/{folderID}", folders.HandleDelete)
		r.Post("/{folderID}/decks", folders.HandleAddDeck)
		r.Delete("/{folderID}/decks/{deckID}", folders.HandleRemoveDeck)
	})

	env := &testEnv{router: r, store: store}
	env.alice = env.addUser(t, "alice", 1)
	env.bob = env.addUser(t, "bob", 2)
	return env
}

func (e *testEnv) addUser(t *testing.T, username string, githubID int64) string {
	t.Helper()
	u := &model.User{Username: username, GitHubID: githubID}
	require.NoError(t, e.store.Users().Upsert(context.Background(), u))
	return u.ID
}

// do sends a request as user ("" for anonymous). Extra headers come in
// key, value pairs.
func (e *testEnv) do(t *testing.T, method, path, user, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(testUserHeader, user)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals the body of rec into a generic map.
func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func field(t *testing.T, rec *httptest.ResponseRecorder, key string) map[string]any {
	t.Helper()
	obj, ok := decode(t, rec)[key].(map[string]any)
	require.True(t, ok, "response has no %q object: %s", key, rec.Body.String())
	return obj
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, kind string) {
	t.Helper()
	assert.Equal(t, status, rec.Code, "body: %s", rec.Body.String())
	var body handler.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, kind, body.Error)
	assert.NotEmpty(t, body.Message)
}

// createDeck creates a deck as user and returns its id.
func (e *testEnv) createDeck(t *testing.T, user, body string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/decks", user, body)
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return field(t, rec, "deck")["id"].(string)
}

func (e *testEnv) createCard(t *testing.T, user, deckID, front string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/decks/"+deckID+"/cards", user, `{"front":"`+front+`","back":"b"}`)
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return field(t, rec, "card")["id"].(string)
}
