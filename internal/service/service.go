// Package service holds the business rules of flashdeck.
//
// Handlers parse HTTP and call into this package with plain values; the
// services validate input, apply the access policy and talk to the entity
// stores through the repository interfaces. Nothing here knows about HTTP
// or about which backend is in use.
//
// Every method takes the requester's user id, with "" meaning anonymous.
// Errors are apperror values so the handler layer can map them to status
// codes.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/repository"
)

// PasswordHasher hashes and checks deck passwords. auth.PasswordService
// implements it.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(hash, plaintext string) error
}

// UserRef names the user whose decks or folders are listed. ID wins when
// both are set.
type UserRef struct {
	ID       string
	Username string
}

// resolveUser looks up the user a listing is for.
func resolveUser(ctx context.Context, users repository.UserRepository, ref UserRef) (*model.User, error) {
	id := strings.TrimSpace(ref.ID)
	username := strings.TrimSpace(ref.Username)

	var (
		user *model.User
		err  error
	)
	switch {
	case id != "":
		user, err = users.GetUserByID(ctx, id)
	case username != "":
		user, err = users.GetUserByUsername(ctx, username)
	default:
		return nil, apperror.BadRequest("Please provide a userId or username")
	}
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMsg("User not found")
		}
		return nil, err
	}
	return user, nil
}

// requireUser rejects anonymous callers of mutating operations.
func requireUser(requesterID string) error {
	if requesterID == "" {
		return apperror.Unauthorized("valid authentication required")
	}
	return nil
}
