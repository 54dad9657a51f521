package services

import (
	"database/sql"
	"errors"

	"papervault/internal/auth"
	"papervault/internal/logger"
	"papervault/internal/papers"
)

// GrantService manages per-paper access grants. All operations are
// admin-only; grants are never hard-deleted, revocation flips the active
// flag and records who revoked and when.
type GrantService struct {
	app    AppState
	logger *logger.Logger
	store  *auth.Store
	papers *papers.Store
}

// NewGrantService creates a new grant service.
func NewGrantService(app AppState, log *logger.Logger) *GrantService {
	db := app.GetDB()
	if db == nil {
		return nil
	}
	return &GrantService{
		app:    app,
		logger: log,
		store:  auth.NewStore(db),
		papers: papers.NewStore(db),
	}
}

// Assign grants a user access to a paper. Returns ErrGrantExists when the
// pair already holds an active grant; the storage-level unique index makes
// this safe under concurrent assignment.
func (s *GrantService) Assign(actor *auth.Identity, paperID, userID int64) (*auth.Grant, error) {
	if !actor.User.IsAdmin() {
		return nil, ErrAuthForbidden
	}

	paper, err := s.papers.GetPaperByID(paperID)
	if err != nil {
		return nil, WrapInternalError(err)
	}
	if paper == nil {
		return nil, ErrPaperNotFoundWithID(paperID)
	}

	target, err := s.store.GetUserByID(userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAuthUserNotFound
	}
	if err != nil {
		return nil, WrapInternalError(err)
	}
	if !target.IsActive {
		return nil, ErrAuthUserDisabled
	}

	grant, err := s.store.CreateGrant(paperID, userID, actor.User.ID)
	if err != nil {
		var conflict *auth.ErrGrantConflict
		if errors.As(err, &conflict) {
			return nil, ErrGrantExists
		}
		return nil, WrapInternalError(err)
	}

	s.logger.Info("Grants: grant id=%d paper=%d user=%s granted by=%s",
		grant.ID, paperID, target.Email, actor.User.Email)

	return grant, nil
}

// Revoke deactivates a grant by its ID. Returns the revoked grant so the
// caller can audit which paper and user were affected.
func (s *GrantService) Revoke(actor *auth.Identity, grantID int64) (*auth.Grant, error) {
	if !actor.User.IsAdmin() {
		return nil, ErrAuthForbidden
	}

	grant, err := s.store.GetGrantByID(grantID)
	if err != nil {
		return nil, WrapInternalError(err)
	}
	if grant == nil || !grant.IsActive {
		return nil, ErrGrantNotFound
	}

	revoked, err := s.store.RevokeGrant(grant.PaperID, grant.UserID, actor.User.ID)
	if err != nil {
		return nil, WrapInternalError(err)
	}
	if revoked == nil {
		return nil, ErrGrantNotFound
	}

	s.logger.Info("Grants: grant id=%d paper=%d user_id=%d revoked by=%s",
		revoked.ID, revoked.PaperID, revoked.UserID, actor.User.Email)

	return revoked, nil
}

// ListForPaper returns every grant for a paper, including revoked ones.
func (s *GrantService) ListForPaper(actor *auth.Identity, paperID int64) ([]auth.Grant, error) {
	if !actor.User.IsAdmin() {
		return nil, ErrAuthForbidden
	}
	grants, err := s.store.ListGrantsForPaper(paperID)
	if err != nil {
		return nil, WrapInternalError(err)
	}
	return grants, nil
}

// ListForUser returns the active grants held by a user.
func (s *GrantService) ListForUser(actor *auth.Identity, userID int64) ([]auth.Grant, error) {
	if !actor.User.IsAdmin() {
		return nil, ErrAuthForbidden
	}
	grants, err := s.store.ListActiveGrantsForUser(userID)
	if err != nil {
		return nil, WrapInternalError(err)
	}
	return grants, nil
}
