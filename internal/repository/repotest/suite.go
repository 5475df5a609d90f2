// Package repotest is a behavioural compliance suite for repository.Store
// implementations. Each backend's tests call Run with a constructor that
// returns a clean, isolated store.
package repotest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/repository"
)

// Run exercises every repository of the store returned by makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) repository.Store) {
	t.Helper()

	t.Run("Users", func(t *testing.T) { testUsers(t, makeStore(t)) })
	t.Run("DeckCRUD", func(t *testing.T) { testDeckCRUD(t, makeStore(t)) })
	t.Run("DeckSummaries", func(t *testing.T) { testDeckSummaries(t, makeStore(t)) })
	t.Run("DeckOptimisticUpdate", func(t *testing.T) { testDeckOptimisticUpdate(t, makeStore(t)) })
	t.Run("Folders", func(t *testing.T) { testFolders(t, makeStore(t)) })
	t.Run("Cards", func(t *testing.T) { testCards(t, makeStore(t)) })
}

func uniqueName(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}

func newDeck(owner, title string, visible model.AccessType, cards ...string) *model.Deck {
	if cards == nil {
		cards = []string{}
	}
	return &model.Deck{
		Title:      title,
		Owner:      owner,
		VisibleTo:  visible,
		EditableBy: model.AccessPrivate,
		Cards:      cards,
	}
}

func testUsers(t *testing.T, s repository.Store) {
	ctx := context.Background()
	users := s.Users()

	name := uniqueName("octocat")
	u := &model.User{GitHubID: int64(uuid.New().ID()), Username: name, Email: name + "@example.test"}
	require.NoError(t, users.Upsert(ctx, u))
	require.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	firstID := u.ID
	again := &model.User{GitHubID: u.GitHubID, Username: name, Email: "new@example.test"}
	require.NoError(t, users.Upsert(ctx, again))
	assert.Equal(t, firstID, again.ID, "upsert must keep the internal id")

	byID, err := users.GetUserByID(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.test", byID.Email)

	byName, err := users.GetUserByUsername(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, firstID, byName.ID)

	_, err = users.GetUserByID(ctx, "missing")
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
	_, err = users.GetUserByUsername(ctx, uniqueName("ghost"))
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

func testDeckCRUD(t *testing.T, s repository.Store) {
	ctx := context.Background()
	decks := s.Decks()

	d := newDeck("owner-1", "Verbs", model.AccessPublic, "c1", "c2", "c3")
	d.Description = "irregular"
	d.Password = "$2a$04$hash"
	require.NoError(t, decks.Create(ctx, d))
	require.NotEmpty(t, d.ID)
	assert.Equal(t, int64(1), d.Version)
	assert.False(t, d.CreatedAt.IsZero())

	got, err := decks.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Verbs", got.Title)
	assert.Equal(t, "irregular", got.Description)
	assert.Equal(t, "owner-1", got.Owner)
	assert.Equal(t, model.AccessPublic, got.VisibleTo)
	assert.Equal(t, model.AccessPrivate, got.EditableBy)
	assert.Equal(t, "$2a$04$hash", got.Password)
	assert.Equal(t, []string{"c1", "c2", "c3"}, got.Cards)

	got.Cards = []string{"c3", "c1"}
	got.Title = "Verbs II"
	require.NoError(t, decks.Update(ctx, got))
	assert.Equal(t, int64(2), got.Version)

	reloaded, err := decks.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Verbs II", reloaded.Title)
	assert.Equal(t, []string{"c3", "c1"}, reloaded.Cards)
	assert.Equal(t, int64(2), reloaded.Version)

	other := newDeck("owner-1", "Nouns", model.AccessPrivate)
	require.NoError(t, decks.Create(ctx, other))
	many, err := decks.GetMany(ctx, []string{d.ID, other.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, many, 2)

	_, err = decks.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)

	require.NoError(t, decks.Delete(ctx, d.ID))
	_, err = decks.GetByID(ctx, d.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)

	// Deleting again, or an id that never existed, succeeds.
	assert.NoError(t, decks.Delete(ctx, d.ID))
	assert.NoError(t, decks.Delete(ctx, "never-existed"))
}

func testDeckSummaries(t *testing.T, s repository.Store) {
	ctx := context.Background()
	decks := s.Decks()
	owner := uniqueName("owner")

	pub := newDeck(owner, "Public", model.AccessPublic, "a", "b")
	priv := newDeck(owner, "Private", model.AccessPrivate, "c")
	prot := newDeck(owner, "Protected", model.AccessPasswordProtected)
	prot.Password = "hash"
	foreign := newDeck(uniqueName("someone"), "Foreign", model.AccessPublic)
	for _, d := range []*model.Deck{pub, priv, prot, foreign} {
		require.NoError(t, decks.Create(ctx, d))
	}

	all, err := decks.ListSummaries(ctx, repository.DeckFilter{OwnerID: owner})
	require.NoError(t, err)
	require.Len(t, all, 3)

	counts := map[string]int{}
	for _, sum := range all {
		counts[sum.Title] = sum.CardsCount
	}
	assert.Equal(t, map[string]int{"Public": 2, "Private": 1, "Protected": 0}, counts)

	public, err := decks.ListSummaries(ctx, repository.DeckFilter{OwnerID: owner, PublicOnly: true})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, pub.ID, public[0].ID)
	assert.Equal(t, 2, public[0].CardsCount)

	none, err := decks.ListSummaries(ctx, repository.DeckFilter{OwnerID: uniqueName("nobody")})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testDeckOptimisticUpdate(t *testing.T, s repository.Store) {
	ctx := context.Background()
	decks := s.Decks()

	d := newDeck("owner", "Race", model.AccessPrivate, "a")
	require.NoError(t, decks.Create(ctx, d))

	first, err := decks.GetByID(ctx, d.ID)
	require.NoError(t, err)
	second, err := decks.GetByID(ctx, d.ID)
	require.NoError(t, err)

	first.Cards = []string{"a", "b"}
	require.NoError(t, decks.Update(ctx, first))

	second.Cards = []string{"c"}
	err = decks.Update(ctx, second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrConflict), "got %v", err)

	stored, err := decks.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, stored.Cards, "losing write must not apply")

	ghost := newDeck("owner", "Ghost", model.AccessPrivate)
	ghost.ID = "missing"
	ghost.Version = 1
	err = decks.Update(ctx, ghost)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

func testFolders(t *testing.T, s repository.Store) {
	ctx := context.Background()
	decks, folders := s.Decks(), s.Folders()
	owner := uniqueName("owner")

	d1 := newDeck(owner, "One", model.AccessPublic)
	d2 := newDeck(owner, "Two", model.AccessPublic)
	require.NoError(t, decks.Create(ctx, d1))
	require.NoError(t, decks.Create(ctx, d2))

	f := &model.Folder{Title: "Spanish", Owner: owner, Decks: []string{d1.ID}}
	require.NoError(t, folders.Create(ctx, f))
	require.NotEmpty(t, f.ID)
	assert.Equal(t, int64(1), f.Version)

	got, err := folders.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{d1.ID}, got.Decks)

	got.Decks = []string{d2.ID, d1.ID}
	got.Description = "verbs and nouns"
	require.NoError(t, folders.Update(ctx, got))
	assert.Equal(t, int64(2), got.Version)

	stale := *f
	err = folders.Update(ctx, &stale)
	assert.True(t, errors.Is(err, apperror.ErrConflict), "got %v", err)

	sums, err := folders.ListSummaries(ctx, owner)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, 2, sums[0].DecksCount)
	assert.Equal(t, "verbs and nouns", sums[0].Description)

	require.NoError(t, folders.RemoveDeckEverywhere(ctx, d2.ID))
	after, err := folders.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{d1.ID}, after.Decks)
	assert.Greater(t, after.Version, got.Version, "removal must bump the folder version")

	require.NoError(t, folders.Delete(ctx, f.ID))
	_, err = folders.GetByID(ctx, f.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
	assert.NoError(t, folders.Delete(ctx, f.ID))
}

func testCards(t *testing.T, s repository.Store) {
	ctx := context.Background()
	cards := s.Cards()

	c := &model.Card{DeckID: "d1", Owner: "owner", Front: "hola", Back: "hello"}
	require.NoError(t, cards.Create(ctx, c))
	require.NotEmpty(t, c.ID)

	got, err := cards.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "hola", got.Front)
	assert.Equal(t, "hello", got.Back)
	assert.Equal(t, "d1", got.DeckID)

	c2 := &model.Card{DeckID: "d1", Owner: "owner", Front: "adiós"}
	require.NoError(t, cards.Create(ctx, c2))

	many, err := cards.GetMany(ctx, []string{c.ID, c2.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, many, 2)

	empty, err := cards.GetMany(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, cards.Delete(ctx, c.ID))
	_, err = cards.GetByID(ctx, c.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
	assert.NoError(t, cards.Delete(ctx, c.ID))
}
