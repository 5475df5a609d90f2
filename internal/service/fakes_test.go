package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/auth"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/repository"
)

// memStore is an in-memory repository.Store with the same version and
// not-found semantics as the real backends. Values are copied in and out
// so tests cannot alias stored state.
type memStore struct {
	mu      sync.Mutex
	seq     int
	decks   map[string]model.Deck
	folders map[string]model.Folder
	cards   map[string]model.Card
	users   map[string]model.User

	// beforeDeckUpdate runs inside Deck Update before the version check,
	// letting a test simulate a concurrent writer.
	beforeDeckUpdate func(id string)
}

var _ repository.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		decks:   map[string]model.Deck{},
		folders: map[string]model.Folder{},
		cards:   map[string]model.Card{},
		users:   map[string]model.User{},
	}
}

func (m *memStore) Decks() repository.DeckRepository     { return memDecks{m} }
func (m *memStore) Folders() repository.FolderRepository { return memFolders{m} }
func (m *memStore) Cards() repository.CardRepository     { return memCards{m} }
func (m *memStore) Users() repository.UserRepository     { return memUsers{m} }
func (m *memStore) Close() error                         { return nil }

// next returns a fresh id and a strictly increasing timestamp.
func (m *memStore) next(prefix string) (string, time.Time) {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq), time.Unix(1700000000, 0).Add(time.Duration(m.seq) * time.Second)
}

func cloneIDs(ids []string) []string {
	return append([]string{}, ids...)
}

// bumpDeck simulates another writer committing to the deck.
func (m *memStore) bumpDeck(id string) {
	d := m.decks[id]
	d.Version++
	m.decks[id] = d
}

type memDecks struct{ m *memStore }

func (r memDecks) Create(_ context.Context, deck *model.Deck) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	id, now := r.m.next("deck")
	deck.ID, deck.Version, deck.CreatedAt, deck.UpdatedAt = id, 1, now, now
	deck.Cards = cloneIDs(deck.Cards)
	stored := *deck
	stored.Cards = cloneIDs(deck.Cards)
	r.m.decks[id] = stored
	return nil
}

func (r memDecks) GetByID(_ context.Context, id string) (*model.Deck, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.decks[id]
	if !ok {
		return nil, apperror.NotFoundMsg("Deck not found")
	}
	d.Cards = cloneIDs(d.Cards)
	return &d, nil
}

func (r memDecks) GetMany(_ context.Context, ids []string) ([]model.Deck, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []model.Deck{}
	for _, id := range ids {
		if d, ok := r.m.decks[id]; ok {
			d.Cards = cloneIDs(d.Cards)
			out = append(out, d)
		}
	}
	return out, nil
}

func (r memDecks) ListSummaries(_ context.Context, f repository.DeckFilter) ([]model.DeckSummary, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var decks []model.Deck
	for _, d := range r.m.decks {
		if d.Owner != f.OwnerID || (f.PublicOnly && d.VisibleTo != model.AccessPublic) {
			continue
		}
		decks = append(decks, d)
	}
	sort.Slice(decks, func(i, j int) bool { return decks[i].CreatedAt.After(decks[j].CreatedAt) })

	out := []model.DeckSummary{}
	for _, d := range decks {
		out = append(out, model.DeckSummary{ID: d.ID, Title: d.Title, Description: d.Description, CardsCount: len(d.Cards)})
	}
	return out, nil
}

func (r memDecks) Update(_ context.Context, deck *model.Deck) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.beforeDeckUpdate != nil {
		r.m.beforeDeckUpdate(deck.ID)
	}
	stored, ok := r.m.decks[deck.ID]
	if !ok {
		return apperror.NotFound("deck", deck.ID)
	}
	if stored.Version != deck.Version {
		return apperror.Conflict("deck", deck.ID)
	}
	deck.Version++
	deck.UpdatedAt = time.Now()
	next := *deck
	next.Cards = cloneIDs(deck.Cards)
	next.CreatedAt = stored.CreatedAt
	r.m.decks[deck.ID] = next
	return nil
}

func (r memDecks) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.decks, id)
	return nil
}

type memFolders struct{ m *memStore }

func (r memFolders) Create(_ context.Context, f *model.Folder) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	id, now := r.m.next("folder")
	f.ID, f.Version, f.CreatedAt, f.UpdatedAt = id, 1, now, now
	f.Decks = cloneIDs(f.Decks)
	stored := *f
	stored.Decks = cloneIDs(f.Decks)
	r.m.folders[id] = stored
	return nil
}

func (r memFolders) GetByID(_ context.Context, id string) (*model.Folder, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	f, ok := r.m.folders[id]
	if !ok {
		return nil, apperror.NotFoundMsg("Folder not found")
	}
	f.Decks = cloneIDs(f.Decks)
	return &f, nil
}

func (r memFolders) ListSummaries(_ context.Context, ownerID string) ([]model.FolderSummary, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var folders []model.Folder
	for _, f := range r.m.folders {
		if f.Owner == ownerID {
			folders = append(folders, f)
		}
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].CreatedAt.After(folders[j].CreatedAt) })

	out := []model.FolderSummary{}
	for _, f := range folders {
		out = append(out, model.FolderSummary{ID: f.ID, Title: f.Title, Description: f.Description, DecksCount: len(f.Decks)})
	}
	return out, nil
}

func (r memFolders) Update(_ context.Context, f *model.Folder) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.folders[f.ID]
	if !ok {
		return apperror.NotFound("folder", f.ID)
	}
	if stored.Version != f.Version {
		return apperror.Conflict("folder", f.ID)
	}
	f.Version++
	next := *f
	next.Decks = cloneIDs(f.Decks)
	r.m.folders[f.ID] = next
	return nil
}

func (r memFolders) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.folders, id)
	return nil
}

func (r memFolders) RemoveDeckEverywhere(_ context.Context, deckID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, f := range r.m.folders {
		if remaining, found := model.RemoveID(f.Decks, deckID); found {
			f.Decks = remaining
			f.Version++
			r.m.folders[id] = f
		}
	}
	return nil
}

type memCards struct{ m *memStore }

func (r memCards) Create(_ context.Context, c *model.Card) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	id, now := r.m.next("card")
	c.ID, c.CreatedAt, c.UpdatedAt = id, now, now
	r.m.cards[id] = *c
	return nil
}

func (r memCards) GetByID(_ context.Context, id string) (*model.Card, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.cards[id]
	if !ok {
		return nil, apperror.NotFoundMsg("Card not found")
	}
	return &c, nil
}

func (r memCards) GetMany(_ context.Context, ids []string) ([]model.Card, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []model.Card{}
	for _, id := range ids {
		if c, ok := r.m.cards[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r memCards) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.cards, id)
	return nil
}

type memUsers struct{ m *memStore }

func (r memUsers) Upsert(_ context.Context, u *model.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, existing := range r.m.users {
		if existing.GitHubID == u.GitHubID {
			u.ID, u.CreatedAt = id, existing.CreatedAt
			u.UpdatedAt = time.Now()
			r.m.users[id] = *u
			return nil
		}
	}
	id, now := r.m.next("user")
	u.ID, u.CreatedAt, u.UpdatedAt = id, now, now
	r.m.users[id] = *u
	return nil
}

func (r memUsers) GetUserByID(_ context.Context, id string) (*model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, apperror.NotFoundMsg("User not found")
	}
	return &u, nil
}

func (r memUsers) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, apperror.NotFoundMsg("User not found")
}

// =========================================================================
// FIXTURES
// =========================================================================

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPasswords() *auth.PasswordService {
	return auth.NewPasswordServiceForTest(bcrypt.MinCost)
}

func ptr[T any](v T) *T { return &v }

// addUser registers a user directly in the store and returns its id.
func addUser(t *testing.T, m *memStore, username string) string {
	t.Helper()
	u := &model.User{Username: username, GitHubID: int64(len(m.users) + 1000)}
	if err := m.Users().Upsert(context.Background(), u); err != nil {
		t.Fatalf("Upsert(%s): %v", username, err)
	}
	return u.ID
}

// addDeck stores a deck with one card per front and returns it.
func addDeck(t *testing.T, m *memStore, owner string, visible, editable model.AccessType, passwordHash string, fronts ...string) *model.Deck {
	t.Helper()
	ctx := context.Background()
	d := &model.Deck{Title: "deck", Owner: owner, VisibleTo: visible, EditableBy: editable, Password: passwordHash}
	if err := m.Decks().Create(ctx, d); err != nil {
		t.Fatalf("Create deck: %v", err)
	}
	for _, front := range fronts {
		c := &model.Card{DeckID: d.ID, Owner: owner, Front: front}
		if err := m.Cards().Create(ctx, c); err != nil {
			t.Fatalf("Create card: %v", err)
		}
		d.Cards = append(d.Cards, c.ID)
	}
	if len(fronts) > 0 {
		if err := m.Decks().Update(ctx, d); err != nil {
			t.Fatalf("Update deck: %v", err)
		}
	}
	return d
}
