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

var _ repository.CardRepository = (*CardDB)(nil)

type CardDB struct {
	conn *sql.DB
}

const cardColumns = `id, deck_id, owner_id, front, back, created_at, updated_at`

func scanCard(row interface{ Scan(...any) error }, c *model.Card) error {
	return row.Scan(&c.ID, &c.DeckID, &c.Owner, &c.Front, &c.Back, &c.CreatedAt, &c.UpdatedAt)
}

func (db *CardDB) Create(ctx context.Context, card *model.Card) error {
	card.ID = xid.New().String()
	now := time.Now()
	card.CreatedAt = now
	card.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO cards (`+cardColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		card.ID,
		card.DeckID,
		card.Owner,
		card.Front,
		card.Back,
		card.CreatedAt,
		card.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating card: %w", err)
	}
	return nil
}

func (db *CardDB) GetByID(ctx context.Context, id string) (*model.Card, error) {
	var c model.Card
	err := scanCard(db.conn.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = ?`, id), &c)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMsg("Card not found")
		}
		return nil, fmt.Errorf("sqlite: getting card %s: %w", id, err)
	}
	return &c, nil
}

func (db *CardDB) GetMany(ctx context.Context, ids []string) ([]model.Card, error) {
	if len(ids) == 0 {
		return []model.Card{}, nil
	}

	marks, args := placeholders(ids)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id IN (`+marks+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting cards: %w", err)
	}
	defer rows.Close()

	cards := make([]model.Card, 0, len(ids))
	for rows.Next() {
		var c model.Card
		if err := scanCard(rows, &c); err != nil {
			return nil, fmt.Errorf("sqlite: scanning card row: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating cards: %w", err)
	}
	return cards, nil
}

func (db *CardDB) Delete(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting card %s: %w", id, err)
	}
	return nil
}
