package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/flashdeck/internal/handler"
)

func TestDeckCreate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/decks", env.alice,
		`{"title":"  Spanish  ","description":"verbs","visibleTo":"PUBLIC","owner":"mallory","cards":["x"],"version":99}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	deck := field(t, rec, "deck")
	assert.Equal(t, "Spanish", deck["title"])
	assert.Equal(t, env.alice, deck["owner"], "owner comes from the session, not the body")
	assert.Equal(t, "PUBLIC", deck["visibleTo"])
	assert.Equal(t, "PRIVATE", deck["editableBy"])
	assert.Empty(t, deck["cards"])
	assert.EqualValues(t, 1, deck["version"])
	assert.Equal(t, false, deck["hasPassword"])
	assert.NotContains(t, deck, "password")
}

func TestDeckCreate_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		user   string
		body   string
		status int
		kind   string
	}{
		{"anonymous", "", `{"title":"x"}`, http.StatusUnauthorized, "unauthorized"},
		{"malformed json", env.alice, `{"title":`, http.StatusBadRequest, "bad_request"},
		{"blank title", env.alice, `{"title":"   "}`, http.StatusBadRequest, "validation_error"},
		{"unknown access type", env.alice, `{"title":"x","visibleTo":"FRIENDS"}`, http.StatusBadRequest, "validation_error"},
		{"title not a string", env.alice, `{"title":7}`, http.StatusBadRequest, "validation_error"},
		{"protected without password", env.alice, `{"title":"x","visibleTo":"PASSWORD_PROTECTED"}`, http.StatusBadRequest, "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/decks", tt.user, tt.body)
			assertError(t, rec, tt.status, tt.kind)
		})
	}
}

func TestDeckGet_PasswordProtected(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDeck(t, env.alice, `{"title":"secret","visibleTo":"PASSWORD_PROTECTED","password":"hunter2"}`)
	env.createCard(t, env.alice, id, "q1")

	rec := env.do(t, http.MethodGet, "/api/decks/"+id, env.bob, "")
	assertError(t, rec, http.StatusForbidden, "forbidden")
	assert.Contains(t, rec.Body.String(), "password protected")

	rec = env.do(t, http.MethodGet, "/api/decks/"+id, env.bob, "", handler.DeckPasswordHeader, "wrong")
	assertError(t, rec, http.StatusForbidden, "forbidden")

	rec = env.do(t, http.MethodGet, "/api/decks/"+id, "", "", handler.DeckPasswordHeader, "hunter2")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	deck := field(t, rec, "deck")
	assert.Equal(t, true, deck["hasPassword"])
	assert.NotContains(t, deck, "password")

	cards, ok := deck["cards"].([]any)
	require.True(t, ok)
	require.Len(t, cards, 1)
	assert.Equal(t, "q1", cards[0].(map[string]any)["front"], "cards are populated")
}

func TestDeckGet_NotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/decks/nope", env.alice, "")
	assertError(t, rec, http.StatusNotFound, "not_found")
}

func TestDeckList(t *testing.T) {
	env := newTestEnv(t)
	env.createDeck(t, env.alice, `{"title":"private one"}`)
	pub := env.createDeck(t, env.alice, `{"title":"public one","visibleTo":"PUBLIC"}`)
	env.createCard(t, env.alice, pub, "q")

	rec := env.do(t, http.MethodGet, "/api/decks?username=alice", env.alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["decks"], 2)

	rec = env.do(t, http.MethodGet, "/api/decks?userId="+env.alice, env.bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decks := decode(t, rec)["decks"].([]any)
	require.Len(t, decks, 1)
	summary := decks[0].(map[string]any)
	assert.Equal(t, "public one", summary["title"])
	assert.EqualValues(t, 1, summary["cardsCount"])

	rec = env.do(t, http.MethodGet, "/api/decks", env.alice, "")
	assertError(t, rec, http.StatusBadRequest, "bad_request")

	rec = env.do(t, http.MethodGet, "/api/decks?username=nobody", env.alice, "")
	assertError(t, rec, http.StatusNotFound, "not_found")
}

func TestDeckList_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/decks?username=bob", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"decks":[]}`, rec.Body.String())
}

func TestDeckUpdate(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDeck(t, env.alice, `{"title":"old","visibleTo":"PUBLIC","editableBy":"PUBLIC"}`)

	rec := env.do(t, http.MethodPatch, "/api/decks/"+id, env.alice, `{"title":"new","owner":"mallory"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	deck := field(t, rec, "deck")
	assert.Equal(t, "new", deck["title"])
	assert.Equal(t, env.alice, deck["owner"])
	assert.EqualValues(t, 2, deck["version"])

	rec = env.do(t, http.MethodPatch, "/api/decks/"+id, env.bob, `{"description":"edited by bob"}`)
	require.Equal(t, http.StatusOK, rec.Code, "publicly editable content")

	rec = env.do(t, http.MethodPatch, "/api/decks/"+id, env.bob, `{"visibleTo":"PRIVATE"}`)
	assertError(t, rec, http.StatusForbidden, "forbidden")

	rec = env.do(t, http.MethodPatch, "/api/decks/"+id, env.alice, `{"visibleTo":"PASSWORD_PROTECTED"}`)
	assertError(t, rec, http.StatusBadRequest, "bad_request")
}

func TestDeckDelete(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDeck(t, env.alice, `{"title":"doomed"}`)

	rec := env.do(t, http.MethodDelete, "/api/decks/"+id, env.bob, "")
	assertError(t, rec, http.StatusForbidden, "forbidden")

	rec = env.do(t, http.MethodDelete, "/api/decks/"+id, env.alice, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/api/decks/"+id, env.alice, "")
	assert.Equal(t, http.StatusOK, rec.Code, "deleting twice succeeds")

	rec = env.do(t, http.MethodGet, "/api/decks/"+id, env.alice, "")
	assertError(t, rec, http.StatusNotFound, "not_found")
}

func TestDeckReorder(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDeck(t, env.alice, `{"title":"ordered"}`)
	a := env.createCard(t, env.alice, id, "a")
	b := env.createCard(t, env.alice, id, "b")
	c := env.createCard(t, env.alice, id, "c")

	rec := env.do(t, http.MethodPost, "/api/decks/"+id+"/reorder", env.alice, `{"cardId":"`+c+`","index":0}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, c, field(t, rec, "card")["id"])

	rec = env.do(t, http.MethodGet, "/api/decks/"+id, env.alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var order []any
	for _, card := range field(t, rec, "deck")["cards"].([]any) {
		order = append(order, card.(map[string]any)["id"])
	}
	assert.Equal(t, []any{c, a, b}, order)

	for name, body := range map[string]string{
		"missing index":  `{"cardId":"` + a + `"}`,
		"missing card":   `{"index":1}`,
		"negative index": `{"cardId":"` + a + `","index":-1}`,
		"string index":   `{"cardId":"` + a + `","index":"1"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/decks/"+id+"/reorder", env.alice, body)
			assertError(t, rec, http.StatusBadRequest, "bad_request")
		})
	}

	rec = env.do(t, http.MethodPost, "/api/decks/"+id+"/reorder", env.bob, `{"cardId":"`+a+`","index":0}`)
	assertError(t, rec, http.StatusForbidden, "forbidden")
}

func TestDeckReorder_ForeignPrivateCard(t *testing.T) {
	env := newTestEnv(t)
	private := env.createDeck(t, env.alice, `{"title":"diary"}`)
	secret := env.createCard(t, env.alice, private, "SECRET")
	bobs := env.createDeck(t, env.bob, `{"title":"bob's"}`)
	env.createCard(t, env.bob, bobs, "a")

	rec := env.do(t, http.MethodPost, "/api/decks/"+bobs+"/reorder", env.bob, `{"cardId":"`+secret+`","index":0}`)
	assertError(t, rec, http.StatusForbidden, "forbidden")
	assert.NotContains(t, rec.Body.String(), "SECRET")

	rec = env.do(t, http.MethodGet, "/api/decks/"+bobs, env.bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "SECRET")
	assert.Len(t, field(t, rec, "deck")["cards"], 1)
}

func TestDeckUpdate_WriteOnlyEditor(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDeck(t, env.alice, `{"title":"inbox","description":"private notes","editableBy":"PUBLIC"}`)
	env.createCard(t, env.alice, id, "hidden")

	rec := env.do(t, http.MethodPatch, "/api/decks/"+id, env.bob, `{"title":"dropped off"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	deck := field(t, rec, "deck")
	assert.Equal(t, "dropped off", deck["title"])
	assert.Equal(t, "", deck["description"])
	assert.Empty(t, deck["cards"])
}
