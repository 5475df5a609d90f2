package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/model"
)

func newTestFolderService(t *testing.T) (*FolderService, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewFolderService(store, newTestPasswords(), newTestLogger()), store
}

func TestCreateFolder(t *testing.T) {
	svc, _ := newTestFolderService(t)
	ctx := context.Background()

	f, err := svc.CreateFolder(ctx, model.FolderFields{Title: ptr(" Languages "), Description: ptr("all of them")}, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Languages", f.Title)
	assert.Equal(t, "all of them", f.Description)
	assert.Equal(t, "u1", f.Owner)
	assert.Empty(t, f.Decks)

	_, err = svc.CreateFolder(ctx, model.FolderFields{Title: ptr("")}, "u1")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.CreateFolder(ctx, model.FolderFields{Title: ptr("ok")}, "")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestListFoldersForUser(t *testing.T) {
	svc, store := newTestFolderService(t)
	ctx := context.Background()
	alice := addUser(t, store, "alice")

	_, err := svc.CreateFolder(ctx, model.FolderFields{Title: ptr("first")}, alice)
	require.NoError(t, err)
	_, err = svc.CreateFolder(ctx, model.FolderFields{Title: ptr("second")}, alice)
	require.NoError(t, err)

	got, err := svc.ListFoldersForUser(ctx, UserRef{Username: "alice"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Title, "newest first")

	_, err = svc.ListFoldersForUser(ctx, UserRef{})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	_, err = svc.ListFoldersForUser(ctx, UserRef{ID: "nobody"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGetFolder_FiltersUnreadableDecks(t *testing.T) {
	svc, store := newTestFolderService(t)
	ctx := context.Background()

	pub := addDeck(t, store, "owner", model.AccessPublic, model.AccessPrivate, "", "a", "b")
	priv := addDeck(t, store, "owner", model.AccessPrivate, model.AccessPrivate, "")
	prot := addDeck(t, store, "owner", model.AccessPasswordProtected, model.AccessPrivate, "hash")
	gone := addDeck(t, store, "owner", model.AccessPublic, model.AccessPrivate, "")
	delete(store.decks, gone.ID)

	folder := &model.Folder{Title: "mixed", Owner: "owner", Decks: []string{priv.ID, pub.ID, prot.ID, gone.ID}}
	require.NoError(t, store.Folders().Create(ctx, folder))

	stranger, err := svc.GetFolder(ctx, folder.ID, "stranger")
	require.NoError(t, err)
	require.Len(t, stranger.Decks, 1)
	assert.Equal(t, pub.ID, stranger.Decks[0].ID)
	assert.Equal(t, 2, stranger.Decks[0].CardsCount)

	owner, err := svc.GetFolder(ctx, folder.ID, "owner")
	require.NoError(t, err)
	ids := []string{}
	for _, d := range owner.Decks {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{priv.ID, pub.ID, prot.ID}, ids, "folder order, dangling ids skipped")

	_, err = svc.GetFolder(ctx, "missing", "owner")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateFolder(t *testing.T) {
	svc, _ := newTestFolderService(t)
	ctx := context.Background()
	f, err := svc.CreateFolder(ctx, model.FolderFields{Title: ptr("old"), Description: ptr("keep")}, "u1")
	require.NoError(t, err)

	got, err := svc.UpdateFolder(ctx, f.ID, model.FolderFields{Title: ptr("new")}, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, "keep", got.Description)
	assert.Equal(t, int64(2), got.Version)

	_, err = svc.UpdateFolder(ctx, f.ID, model.FolderFields{Title: ptr("hijack")}, "stranger")
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = svc.UpdateFolder(ctx, f.ID, model.FolderFields{Title: ptr("  ")}, "u1")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.UpdateFolder(ctx, "missing", model.FolderFields{Title: ptr("x")}, "u1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeleteFolder(t *testing.T) {
	svc, store := newTestFolderService(t)
	ctx := context.Background()
	deck := addDeck(t, store, "u1", model.AccessPublic, model.AccessPrivate, "")
	f, err := svc.CreateFolder(ctx, model.FolderFields{Title: ptr("f")}, "u1")
	require.NoError(t, err)
	_, err = svc.AddDeck(ctx, f.ID, deck.ID, "u1")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteFolder(ctx, f.ID, "stranger"), apperror.ErrForbidden)

	require.NoError(t, svc.DeleteFolder(ctx, f.ID, "u1"))
	assert.NotContains(t, store.folders, f.ID)
	assert.Contains(t, store.decks, deck.ID, "decks survive their folder")

	assert.NoError(t, svc.DeleteFolder(ctx, f.ID, "u1"), "idempotent")
}

func TestAddAndRemoveDeck(t *testing.T) {
	svc, store := newTestFolderService(t)
	ctx := context.Background()
	mine := addDeck(t, store, "u1", model.AccessPrivate, model.AccessPrivate, "")
	theirsPublic := addDeck(t, store, "u2", model.AccessPublic, model.AccessPrivate, "")
	theirsPrivate := addDeck(t, store, "u2", model.AccessPrivate, model.AccessPrivate, "")

	f, err := svc.CreateFolder(ctx, model.FolderFields{Title: ptr("f")}, "u1")
	require.NoError(t, err)

	got, err := svc.AddDeck(ctx, f.ID, mine.ID, "u1")
	require.NoError(t, err)
	got, err = svc.AddDeck(ctx, f.ID, theirsPublic.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{mine.ID, theirsPublic.ID}, got.Decks)

	again, err := svc.AddDeck(ctx, f.ID, mine.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, got.Version, again.Version, "duplicate add does not write")

	_, err = svc.AddDeck(ctx, f.ID, theirsPrivate.ID, "u1")
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = svc.AddDeck(ctx, f.ID, "missing", "u1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = svc.AddDeck(ctx, f.ID, "", "u1")
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
	_, err = svc.AddDeck(ctx, f.ID, mine.ID, "u2")
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	got, err = svc.RemoveDeck(ctx, f.ID, mine.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{theirsPublic.ID}, got.Decks)

	noop, err := svc.RemoveDeck(ctx, f.ID, "not-there", "u1")
	require.NoError(t, err)
	assert.Equal(t, got.Version, noop.Version)
}
