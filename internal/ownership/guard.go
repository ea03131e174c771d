// Package ownership decides whether an actor may mutate a resource.
//
// Callers must establish that the resource exists before asking the guard, so
// a missing resource reports NotFound rather than Forbidden.
package ownership

import (
	"strings"

	"github.com/google/uuid"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/models"
)

// IsOwner reports whether actor is the owner identified by ownerID. Identifier
// representations are normalized, so UUIDs compare equal regardless of case
// or braces.
func IsOwner(actor models.Actor, ownerID string) bool {
	a, o := normalize(actor.UserID), normalize(ownerID)
	return a != "" && a == o
}

// Require returns an apperr.ErrForbidden error carrying msg unless actor owns
// the resource.
func Require(actor models.Actor, ownerID, msg string) error {
	if IsOwner(actor, ownerID) {
		return nil
	}
	if msg == "" {
		msg = "you are not allowed to modify this resource"
	}
	return apperr.New(apperr.ErrForbidden, msg)
}

// SameIdentity reports whether two identifiers denote the same identity.
func SameIdentity(a, b string) bool {
	na, nb := normalize(a), normalize(b)
	return na != "" && na == nb
}

func normalize(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}
	return id
}
