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

var _ repository.FolderRepository = (*FolderDB)(nil)

type FolderDB struct {
	conn *sql.DB
}

func (db *FolderDB) Create(ctx context.Context, folder *model.Folder) error {
	folder.ID = xid.New().String()
	folder.Version = 1
	now := time.Now()
	folder.CreatedAt = now
	folder.UpdatedAt = now
	if folder.Decks == nil {
		folder.Decks = []string{}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning folder create: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO folders (id, title, description, owner_id, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		folder.ID,
		folder.Title,
		folder.Description,
		folder.Owner,
		folder.Version,
		folder.CreatedAt,
		folder.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating folder: %w", err)
	}

	if err := writeRefs(ctx, tx, folderDecksTable, folder.ID, folder.Decks); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing folder create: %w", err)
	}
	return nil
}

func (db *FolderDB) GetByID(ctx context.Context, id string) (*model.Folder, error) {
	var f model.Folder
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, description, owner_id, version, created_at, updated_at
		 FROM folders WHERE id = ?`,
		id,
	).Scan(&f.ID, &f.Title, &f.Description, &f.Owner, &f.Version, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMsg("Folder not found")
		}
		return nil, fmt.Errorf("sqlite: getting folder %s: %w", id, err)
	}

	f.Decks, err = loadRefs(ctx, db.conn, folderDecksTable, f.ID)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (db *FolderDB) ListSummaries(ctx context.Context, ownerID string) ([]model.FolderSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT f.id, f.title, f.description,
			(SELECT COUNT(*) FROM folder_decks fd WHERE fd.folder_id = f.id)
		 FROM folders f
		 WHERE f.owner_id = ?
		 ORDER BY f.created_at DESC, f.id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing folders: %w", err)
	}
	defer rows.Close()

	summaries := []model.FolderSummary{}
	for rows.Next() {
		var s model.FolderSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.DecksCount); err != nil {
			return nil, fmt.Errorf("sqlite: scanning folder summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating folder summaries: %w", err)
	}
	return summaries, nil
}

func (db *FolderDB) Update(ctx context.Context, folder *model.Folder) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning folder update: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`UPDATE folders
		 SET title = ?, description = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		folder.Title,
		folder.Description,
		now,
		folder.ID,
		folder.Version,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating folder %s: %w", folder.ID, err)
	}

	if err := checkVersioned(ctx, tx, result, "folders", "folder", folder.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM folder_decks WHERE folder_id = ?`, folder.ID); err != nil {
		return fmt.Errorf("sqlite: clearing decks of folder %s: %w", folder.ID, err)
	}
	if err := writeRefs(ctx, tx, folderDecksTable, folder.ID, folder.Decks); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing folder update: %w", err)
	}

	folder.Version++
	folder.UpdatedAt = now
	return nil
}

func (db *FolderDB) Delete(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning folder delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM folder_decks WHERE folder_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting decks of folder %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting folder %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing folder delete: %w", err)
	}
	return nil
}

// RemoveDeckEverywhere bumps the version of every folder listing deckID, so
// a concurrent folder write that still holds the old list gets a Conflict.
func (db *FolderDB) RemoveDeckEverywhere(ctx context.Context, deckID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning deck removal: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE folders SET version = version + 1, updated_at = ?
		 WHERE id IN (SELECT folder_id FROM folder_decks WHERE deck_id = ?)`,
		time.Now(), deckID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: bumping folders of deck %s: %w", deckID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM folder_decks WHERE deck_id = ?`, deckID); err != nil {
		return fmt.Errorf("sqlite: removing deck %s from folders: %w", deckID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing deck removal: %w", err)
	}
	return nil
}
