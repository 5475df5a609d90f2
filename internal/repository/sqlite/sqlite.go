// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so no C compiler is
// needed. Ordered reference lists (deck → cards, folder → decks) live in
// join tables with an explicit position column; rewriting a list happens in
// the same transaction as the conditional version bump of its owner row.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/flashdeck/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and hands out the per-entity stores.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/flashdeck.db" → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pooled connection to ":memory:" would get its own empty
	// database, so in-memory stores are pinned to a single connection.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// dsn puts the connection pragmas in the DSN so the driver applies them to
// every pooled connection, not just the first. foreign_keys is
// per-connection in SQLite; WAL lets readers proceed during a write.
func dsn(dbPath string) string {
	if dbPath == ":memory:" {
		return "file::memory:?_pragma=foreign_keys(1)"
	}
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Decks() repository.DeckRepository     { return &DeckDB{conn: db.conn} }
func (db *DB) Folders() repository.FolderRepository { return &FolderDB{conn: db.conn} }
func (db *DB) Cards() repository.CardRepository     { return &CardDB{conn: db.conn} }
func (db *DB) Users() repository.UserRepository     { return &UserDB{conn: db.conn} }

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			username   TEXT NOT NULL UNIQUE,
			github_id  INTEGER NOT NULL UNIQUE,
			email      TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS decks (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			owner_id    TEXT NOT NULL,
			visible_to  TEXT NOT NULL DEFAULT 'PRIVATE'
				CHECK (visible_to IN ('PUBLIC', 'PRIVATE', 'PASSWORD_PROTECTED')),
			editable_by TEXT NOT NULL DEFAULT 'PRIVATE'
				CHECK (editable_by IN ('PUBLIC', 'PRIVATE', 'PASSWORD_PROTECTED')),
			password    TEXT NOT NULL DEFAULT '',
			version     INTEGER NOT NULL DEFAULT 1,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_decks_owner ON decks(owner_id, visible_to);

		CREATE TABLE IF NOT EXISTS deck_cards (
			deck_id  TEXT NOT NULL REFERENCES decks(id) ON DELETE CASCADE,
			card_id  TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (deck_id, position)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating decks tables: %w", err)
	}

	// card ids in deck_cards are plain references, like document ids:
	// they are allowed to dangle.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS cards (
			id         TEXT PRIMARY KEY,
			deck_id    TEXT NOT NULL,
			owner_id   TEXT NOT NULL,
			front      TEXT NOT NULL,
			back       TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating cards table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS folders (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			owner_id    TEXT NOT NULL,
			version     INTEGER NOT NULL DEFAULT 1,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_folders_owner ON folders(owner_id);

		CREATE TABLE IF NOT EXISTS folder_decks (
			folder_id TEXT NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
			deck_id   TEXT NOT NULL REFERENCES decks(id) ON DELETE CASCADE,
			position  INTEGER NOT NULL,
			PRIMARY KEY (folder_id, position)
		);
		CREATE INDEX IF NOT EXISTS idx_folder_decks_deck ON folder_decks(deck_id);
	`)
	if err != nil {
		return fmt.Errorf("creating folders tables: %w", err)
	}

	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// placeholders returns "?, ?, ?" for n arguments and the args as []any.
func placeholders(ids []string) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}
