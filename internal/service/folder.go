package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/flashdeck/internal/access"
	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/repository"
)

// FolderService manages folders. Folders have no access settings of their
// own: anyone can open one, but only the decks the requester could read
// without a password are shown, and only the owner can change it.
type FolderService struct {
	folders repository.FolderRepository
	decks   repository.DeckRepository
	users   repository.UserRepository
	policy  *access.Policy
	logger  *slog.Logger
}

func NewFolderService(store repository.Store, passwords access.Verifier, logger *slog.Logger) *FolderService {
	return &FolderService{
		folders: store.Folders(),
		decks:   store.Decks(),
		users:   store.Users(),
		policy:  access.NewPolicy(passwords),
		logger:  logger,
	}
}

func (s *FolderService) ListFoldersForUser(ctx context.Context, ref UserRef) ([]model.FolderSummary, error) {
	user, err := resolveUser(ctx, s.users, ref)
	if err != nil {
		return nil, err
	}

	folders, err := s.folders.ListSummaries(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to list folders",
			slog.String("owner", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing folders of %s: %w", user.ID, err)
	}
	return folders, nil
}

func (s *FolderService) CreateFolder(ctx context.Context, fields model.FolderFields, ownerID string) (*model.Folder, error) {
	if err := requireUser(ownerID); err != nil {
		return nil, err
	}

	var title string
	if fields.Title != nil {
		title = *fields.Title
	}
	title, err := model.NormalizeTitle(title)
	if err != nil {
		return nil, err
	}

	folder := &model.Folder{
		Title: title,
		Owner: ownerID,
		Decks: []string{},
	}
	if fields.Description != nil {
		folder.Description = strings.TrimSpace(*fields.Description)
	}

	if err := s.folders.Create(ctx, folder); err != nil {
		s.logger.Error("failed to create folder",
			slog.String("owner", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating folder: %w", err)
	}

	s.logger.Info("folder created",
		slog.String("id", folder.ID),
		slog.String("owner", ownerID),
	)
	return folder, nil
}

// GetFolder resolves the folder's decks to summaries in folder order,
// leaving out decks that are gone or that the requester cannot read.
func (s *FolderService) GetFolder(ctx context.Context, folderID, requesterID string) (*model.FolderDetail, error) {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}

	decks, err := s.decks.GetMany(ctx, folder.Decks)
	if err != nil {
		return nil, fmt.Errorf("loading decks of folder %s: %w", folder.ID, err)
	}
	byID := make(map[string]*model.Deck, len(decks))
	for i := range decks {
		byID[decks[i].ID] = &decks[i]
	}

	summaries := make([]model.DeckSummary, 0, len(folder.Decks))
	for _, id := range folder.Decks {
		d, ok := byID[id]
		if !ok || !s.policy.CanRead(d, requesterID, "") {
			continue
		}
		summaries = append(summaries, model.DeckSummary{
			ID:          d.ID,
			Title:       d.Title,
			Description: d.Description,
			CardsCount:  len(d.Cards),
		})
	}
	return &model.FolderDetail{Folder: folder, Decks: summaries}, nil
}

func (s *FolderService) UpdateFolder(ctx context.Context, folderID string, fields model.FolderFields, requesterID string) (*model.Folder, error) {
	folder, err := s.ownedFolder(ctx, folderID, requesterID)
	if err != nil {
		return nil, err
	}

	if fields.Title != nil {
		title, err := model.NormalizeTitle(*fields.Title)
		if err != nil {
			return nil, err
		}
		folder.Title = title
	}
	if fields.Description != nil {
		folder.Description = strings.TrimSpace(*fields.Description)
	}

	if err := s.folders.Update(ctx, folder); err != nil {
		return nil, err
	}

	s.logger.Info("folder updated",
		slog.String("id", folder.ID),
		slog.Int64("version", folder.Version),
	)
	return folder, nil
}

// DeleteFolder leaves the folder's decks untouched. A missing folder is
// not an error.
func (s *FolderService) DeleteFolder(ctx context.Context, folderID, requesterID string) error {
	if _, err := s.ownedFolder(ctx, folderID, requesterID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return err
	}

	if err := s.folders.Delete(ctx, folderID); err != nil {
		return fmt.Errorf("deleting folder %s: %w", folderID, err)
	}

	s.logger.Info("folder deleted", slog.String("id", folderID))
	return nil
}

// AddDeck appends deckID to the folder. The deck must exist and be
// readable by the folder owner; adding a deck twice is a no-op.
func (s *FolderService) AddDeck(ctx context.Context, folderID, deckID, requesterID string) (*model.Folder, error) {
	deckID = strings.TrimSpace(deckID)
	if deckID == "" {
		return nil, apperror.BadRequest("deckId is required")
	}

	folder, err := s.ownedFolder(ctx, folderID, requesterID)
	if err != nil {
		return nil, err
	}

	deck, err := s.decks.GetByID(ctx, deckID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanRead(deck, requesterID, "") {
		return nil, apperror.Forbidden("You do not have access to this deck")
	}

	if model.ContainsID(folder.Decks, deck.ID) {
		return folder, nil
	}
	folder.Decks = append(folder.Decks, deck.ID)
	if err := s.folders.Update(ctx, folder); err != nil {
		return nil, err
	}

	s.logger.Info("deck added to folder",
		slog.String("folder", folder.ID),
		slog.String("deck", deck.ID),
	)
	return folder, nil
}

// RemoveDeck drops deckID from the folder. Removing a deck that is not in
// the folder is a no-op.
func (s *FolderService) RemoveDeck(ctx context.Context, folderID, deckID, requesterID string) (*model.Folder, error) {
	folder, err := s.ownedFolder(ctx, folderID, requesterID)
	if err != nil {
		return nil, err
	}

	remaining, found := model.RemoveID(folder.Decks, deckID)
	if !found {
		return folder, nil
	}
	folder.Decks = remaining
	if err := s.folders.Update(ctx, folder); err != nil {
		return nil, err
	}

	s.logger.Info("deck removed from folder",
		slog.String("folder", folder.ID),
		slog.String("deck", deckID),
	)
	return folder, nil
}

// ownedFolder loads the folder and checks that requesterID owns it.
func (s *FolderService) ownedFolder(ctx context.Context, folderID, requesterID string) (*model.Folder, error) {
	if err := requireUser(requesterID); err != nil {
		return nil, err
	}
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.Owner != requesterID {
		return nil, apperror.Forbidden("Only the folder owner can change this folder")
	}
	return folder, nil
}
