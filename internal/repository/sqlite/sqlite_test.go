package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/repository"
	"github.com/sakif/flashdeck/internal/repository/repotest"
)

// newTestDB returns a fresh in-memory database closed at test end.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteStore_Compliance(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.Store {
		return newTestDB(t)
	})
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flashdeck.db")

	db, err := New(path)
	require.NoError(t, err)

	d := &model.Deck{Title: "Persisted", Owner: "u1", VisibleTo: model.AccessPublic, EditableBy: model.AccessPrivate, Cards: []string{"c1"}}
	require.NoError(t, db.Decks().Create(context.Background(), d))
	require.NoError(t, db.Close())

	// Reopening runs the migrations again over the existing schema.
	db, err = New(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	got, err := db.Decks().GetByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Persisted", got.Title)
	assert.Equal(t, []string{"c1"}, got.Cards)
}

func TestDeckDelete_CascadesFolderReferences(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	d := &model.Deck{Title: "Doomed", Owner: "u1", VisibleTo: model.AccessPrivate, EditableBy: model.AccessPrivate}
	require.NoError(t, db.Decks().Create(ctx, d))
	f := &model.Folder{Title: "F", Owner: "u1", Decks: []string{d.ID}}
	require.NoError(t, db.Folders().Create(ctx, f))

	// The FK on folder_decks is a backstop behind RemoveDeckEverywhere.
	require.NoError(t, db.Decks().Delete(ctx, d.ID))

	got, err := db.Folders().GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Decks)
}

func TestDeckCheckConstraintRejectsUnknownAccessType(t *testing.T) {
	db := newTestDB(t)

	d := &model.Deck{Title: "Bad", Owner: "u1", VisibleTo: model.AccessType("FRIENDS"), EditableBy: model.AccessPrivate}
	err := db.Decks().Create(context.Background(), d)
	assert.Error(t, err)
}

func TestNew_PragmasApplyToEveryConnection(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "pool.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	// Holding several connections at once forces the pool to open new ones.
	var conns []*sql.Conn
	for i := 0; i < 3; i++ {
		c, err := db.conn.Conn(ctx)
		require.NoError(t, err)
		conns = append(conns, c)
	}
	for i, c := range conns {
		var fk int
		require.NoError(t, c.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
		assert.Equal(t, 1, fk, "connection %d", i)

		var mode string
		require.NoError(t, c.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
		assert.Equal(t, "wal", mode, "connection %d", i)
	}
	for _, c := range conns {
		require.NoError(t, c.Close())
	}
}

func TestDeckDelete_CascadesOnFileDatabase(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "cascade.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	// Pin a connection so the delete below runs on a different one.
	held, err := db.conn.Conn(ctx)
	require.NoError(t, err)
	defer held.Close()

	d := &model.Deck{Title: "Doomed", Owner: "u1", VisibleTo: model.AccessPrivate, EditableBy: model.AccessPrivate}
	require.NoError(t, db.Decks().Create(ctx, d))
	f := &model.Folder{Title: "F", Owner: "u1", Decks: []string{d.ID}}
	require.NoError(t, db.Folders().Create(ctx, f))

	require.NoError(t, db.Decks().Delete(ctx, d.ID))

	got, err := db.Folders().GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Decks)
}
