package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/flashdeck/internal/apperror"
)

// refTable describes a join table holding an ordered list of references.
type refTable struct {
	name     string
	ownerCol string
	refCol   string
}

var (
	deckCardsTable   = refTable{name: "deck_cards", ownerCol: "deck_id", refCol: "card_id"}
	folderDecksTable = refTable{name: "folder_decks", ownerCol: "folder_id", refCol: "deck_id"}
)

// loadRefs returns the referenced ids of ownerID in position order.
func loadRefs(ctx context.Context, q queryer, t refTable, ownerID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ? ORDER BY position`, t.refCol, t.name, t.ownerCol),
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading %s of %s: %w", t.name, ownerID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s row: %w", t.name, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s: %w", t.name, err)
	}
	return ids, nil
}

// writeRefs inserts ids for ownerID with positions 0..n-1. Callers clear
// the previous list first.
func writeRefs(ctx context.Context, tx *sql.Tx, t refTable, ownerID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s, %s, position) VALUES (?, ?, ?)`, t.name, t.ownerCol, t.refCol))
	if err != nil {
		return fmt.Errorf("sqlite: preparing %s insert: %w", t.name, err)
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, ownerID, id, i); err != nil {
			return fmt.Errorf("sqlite: inserting into %s: %w", t.name, err)
		}
	}
	return nil
}

// checkVersioned interprets the result of a conditional "WHERE id = ? AND
// version = ?" update: zero rows means either the row is gone (NotFound) or
// someone else bumped the version first (Conflict).
func checkVersioned(ctx context.Context, tx *sql.Tx, result sql.Result, table, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var count int
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE id = ?`, table), id,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("sqlite: checking %s %s exists: %w", resource, id, err)
	}
	if count == 0 {
		return apperror.NotFound(resource, id)
	}
	return apperror.Conflict(resource, id)
}
