// Package authz holds the permission predicates gating every
// state-changing operation. Predicates never mutate state; a false
// result maps to a 403 at the transport boundary.
package authz

import (
	"context"

	"github.com/elvisOC/P10/internal/models"
)

// MembershipStore answers contributor-existence queries. Implemented by
// the Postgres store; faked in tests.
type MembershipStore interface {
	HasContributor(ctx context.Context, projectID, userID int64) (bool, error)
}

// Checker evaluates predicates against the membership store.
type Checker struct {
	memberships MembershipStore
}

func NewChecker(memberships MembershipStore) *Checker {
	return &Checker{memberships: memberships}
}

// IsAuthor reports whether userID authored the entity with the given
// author id. Works for projects, issues and comments alike.
func IsAuthor(authorID, userID int64) bool {
	return authorID == userID
}

// IsContributor reports whether a contributor row exists for (userID,
// projectID).
func (c *Checker) IsContributor(ctx context.Context, projectID, userID int64) (bool, error) {
	return c.memberships.HasContributor(ctx, projectID, userID)
}

// IsAuthorOrContributor reports whether userID is the project's author
// or holds a contributor row on it.
func (c *Checker) IsAuthorOrContributor(ctx context.Context, p *models.Project, userID int64) (bool, error) {
	if IsAuthor(p.AuthorID, userID) {
		return true, nil
	}
	return c.memberships.HasContributor(ctx, p.ID, userID)
}

// IsProjectAuthor reports whether userID authored the project owning an
// entity.
func IsProjectAuthor(p *models.Project, userID int64) bool {
	return p.AuthorID == userID
}
