package auth

import (
	"papervault/internal/logger"
)

// GrantChecker answers whether an active grant exists for a (paper, user)
// pair. *Store satisfies it; tests substitute their own implementation.
type GrantChecker interface {
	HasActiveGrant(paperID, userID int64) (bool, error)
}

// Policy decides whether a user may access a specific paper.
// Admins and super admins bypass per-paper checks entirely; everyone else
// needs an explicit active grant.
type Policy struct {
	grants GrantChecker
	logger *logger.Logger
}

// NewPolicy creates a policy backed by the given grant checker.
func NewPolicy(grants GrantChecker, log *logger.Logger) *Policy {
	return &Policy{grants: grants, logger: log}
}

// CanAccess reports whether the user may view or download the paper.
// Errors from the grant lookup deny access rather than failing open.
func (p *Policy) CanAccess(user *User, paperID int64) (bool, error) {
	if user == nil || !user.IsActive {
		return false, nil
	}

	if user.IsAdmin() {
		return true, nil
	}

	ok, err := p.grants.HasActiveGrant(paperID, user.ID)
	if err != nil {
		p.logger.Error("Policy: grant lookup failed for user=%d paper=%d: %v", user.ID, paperID, err)
		return false, err
	}

	if !ok {
		p.logger.Debug("Policy: user=%d has no active grant for paper=%d", user.ID, paperID)
	}
	return ok, nil
}
