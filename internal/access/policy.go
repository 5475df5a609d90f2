// Package access holds the deck access rules. It has no storage or HTTP
// dependencies: every decision is a pure function of the deck, the
// requester and an optional password.
package access

import (
	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/model"
)

// MsgNoPassword is returned when a protected mode is requested for a deck
// without a password.
const MsgNoPassword = "Deck has no password. Please create a password."

// Verifier checks a plaintext password against a stored hash.
// auth.PasswordService satisfies it.
type Verifier interface {
	Verify(hash, plaintext string) error
}

// Policy decides read and write eligibility for decks.
type Policy struct {
	passwords Verifier
}

func NewPolicy(passwords Verifier) *Policy {
	return &Policy{passwords: passwords}
}

// IsOwner reports whether requesterID owns d. Anonymous requesters own nothing.
func IsOwner(d *model.Deck, requesterID string) bool {
	return requesterID != "" && d.Owner == requesterID
}

// CanRead applies visibleTo. The owner can always read.
func (p *Policy) CanRead(d *model.Deck, requesterID, password string) bool {
	if IsOwner(d, requesterID) {
		return true
	}
	return p.allows(d, d.VisibleTo, password)
}

// CanWrite applies editableBy. Anonymous requesters can never write.
func (p *Policy) CanWrite(d *model.Deck, requesterID, password string) bool {
	if requesterID == "" {
		return false
	}
	if IsOwner(d, requesterID) {
		return true
	}
	return p.allows(d, d.EditableBy, password)
}

func (p *Policy) allows(d *model.Deck, mode model.AccessType, password string) bool {
	switch mode {
	case model.AccessPublic:
		return true
	case model.AccessPasswordProtected:
		if password == "" || !d.HasPassword() {
			return false
		}
		return p.passwords.Verify(d.Password, password) == nil
	default:
		return false
	}
}

// RequiresPassword reports whether either mode is PASSWORD_PROTECTED.
func RequiresPassword(visibleTo, editableBy model.AccessType) bool {
	return visibleTo == model.AccessPasswordProtected || editableBy == model.AccessPasswordProtected
}

// CheckProtection enforces the deck invariant: a protected mode needs a
// stored password.
func CheckProtection(hasPassword bool, visibleTo, editableBy model.AccessType) error {
	if RequiresPassword(visibleTo, editableBy) && !hasPassword {
		return apperror.ValidationFailed("password", MsgNoPassword)
	}
	return nil
}
