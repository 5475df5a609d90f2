package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/repository"
)

var _ repository.DeckRepository = (*DeckDB)(nil)

// DeckDB stores decks in the decks table and their ordered card lists in
// deck_cards.
type DeckDB struct {
	conn *sql.DB
}

const deckColumns = `id, title, description, owner_id, visible_to, editable_by, password, version, created_at, updated_at`

func scanDeck(row interface{ Scan(...any) error }, d *model.Deck) error {
	return row.Scan(
		&d.ID,
		&d.Title,
		&d.Description,
		&d.Owner,
		&d.VisibleTo,
		&d.EditableBy,
		&d.Password,
		&d.Version,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
}

// Create inserts the deck row and its card list in one transaction.
func (db *DeckDB) Create(ctx context.Context, deck *model.Deck) error {
	deck.ID = xid.New().String()
	deck.Version = 1
	now := time.Now()
	deck.CreatedAt = now
	deck.UpdatedAt = now
	if deck.Cards == nil {
		deck.Cards = []string{}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning deck create: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO decks (`+deckColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		deck.ID,
		deck.Title,
		deck.Description,
		deck.Owner,
		deck.VisibleTo,
		deck.EditableBy,
		deck.Password,
		deck.Version,
		deck.CreatedAt,
		deck.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating deck: %w", err)
	}

	if err := writeRefs(ctx, tx, deckCardsTable, deck.ID, deck.Cards); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing deck create: %w", err)
	}
	return nil
}

func (db *DeckDB) GetByID(ctx context.Context, id string) (*model.Deck, error) {
	var deck model.Deck
	err := scanDeck(db.conn.QueryRowContext(ctx,
		`SELECT `+deckColumns+` FROM decks WHERE id = ?`, id), &deck)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMsg("Deck not found")
		}
		return nil, fmt.Errorf("sqlite: getting deck %s: %w", id, err)
	}

	deck.Cards, err = loadRefs(ctx, db.conn, deckCardsTable, deck.ID)
	if err != nil {
		return nil, err
	}
	return &deck, nil
}

func (db *DeckDB) GetMany(ctx context.Context, ids []string) ([]model.Deck, error) {
	if len(ids) == 0 {
		return []model.Deck{}, nil
	}

	marks, args := placeholders(ids)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+deckColumns+` FROM decks WHERE id IN (`+marks+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting decks: %w", err)
	}
	defer rows.Close()

	decks := make([]model.Deck, 0, len(ids))
	for rows.Next() {
		var d model.Deck
		if err := scanDeck(rows, &d); err != nil {
			return nil, fmt.Errorf("sqlite: scanning deck row: %w", err)
		}
		decks = append(decks, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating decks: %w", err)
	}
	rows.Close()

	for i := range decks {
		decks[i].Cards, err = loadRefs(ctx, db.conn, deckCardsTable, decks[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return decks, nil
}

// ListSummaries counts cards with a correlated subquery, so the count is
// always computed from the current card list.
func (db *DeckDB) ListSummaries(ctx context.Context, filter repository.DeckFilter) ([]model.DeckSummary, error) {
	query := `SELECT d.id, d.title, d.description,
			(SELECT COUNT(*) FROM deck_cards dc WHERE dc.deck_id = d.id)
		 FROM decks d
		 WHERE d.owner_id = ?`
	args := []any{filter.OwnerID}
	if filter.PublicOnly {
		query += ` AND d.visible_to = ?`
		args = append(args, model.AccessPublic)
	}
	query += ` ORDER BY d.created_at DESC, d.id DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing decks: %w", err)
	}
	defer rows.Close()

	summaries := []model.DeckSummary{}
	for rows.Next() {
		var s model.DeckSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.CardsCount); err != nil {
			return nil, fmt.Errorf("sqlite: scanning deck summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating deck summaries: %w", err)
	}
	return summaries, nil
}

// Update writes every mutable column and the card list, conditional on
// deck.Version matching the stored version.
func (db *DeckDB) Update(ctx context.Context, deck *model.Deck) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning deck update: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`UPDATE decks
		 SET title = ?, description = ?, visible_to = ?, editable_by = ?, password = ?,
		     version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		deck.Title,
		deck.Description,
		deck.VisibleTo,
		deck.EditableBy,
		deck.Password,
		now,
		deck.ID,
		deck.Version,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating deck %s: %w", deck.ID, err)
	}

	if err := checkVersioned(ctx, tx, result, "decks", "deck", deck.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM deck_cards WHERE deck_id = ?`, deck.ID); err != nil {
		return fmt.Errorf("sqlite: clearing cards of deck %s: %w", deck.ID, err)
	}
	if err := writeRefs(ctx, tx, deckCardsTable, deck.ID, deck.Cards); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing deck update: %w", err)
	}

	deck.Version++
	deck.UpdatedAt = now
	return nil
}

// Delete removes the deck and its card list. Missing ids are not an error.
func (db *DeckDB) Delete(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning deck delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM deck_cards WHERE deck_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting cards of deck %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting deck %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing deck delete: %w", err)
	}
	return nil
}
