package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"papervault/internal/auth"
	"papervault/internal/constants"
	"papervault/internal/logger"
)

// AuthService manages credential checks, sessions, and password lifecycle.
type AuthService struct {
	app       AppState
	logger    *logger.Logger
	store     *auth.Store
	policy    *auth.Policy
	stopClean chan struct{} // For session cleanup goroutine shutdown
}

// NewAuthService creates a new auth service.
// Returns nil if the database is not available.
func NewAuthService(app AppState, log *logger.Logger) *AuthService {
	db := app.GetDB()
	if db == nil {
		return nil
	}

	store := auth.NewStore(db)
	policy := auth.NewPolicy(store, log)

	svc := &AuthService{
		app:       app,
		logger:    log,
		store:     store,
		policy:    policy,
		stopClean: make(chan struct{}),
	}

	// Start session cleanup goroutine
	go svc.sessionCleanupLoop()

	return svc
}

// GetStore returns the underlying auth store (for middleware initialization).
func (s *AuthService) GetStore() *auth.Store {
	return s.store
}

// GetPolicy returns the access policy (for handler authorization checks).
func (s *AuthService) GetPolicy() *auth.Policy {
	return s.policy
}

// ============================================================================
// Authentication
// ============================================================================

// LoginResult contains the outcome of a successful login.
type LoginResult struct {
	Token                  string     `json:"token"`
	User                   *auth.User `json:"user"`
	PasswordChangeRequired bool       `json:"password_change_required"`
}

// Login validates credentials and creates a session.
// Returns the plaintext session token and user info.
func (s *AuthService) Login(email, password, ipAddress, userAgent string) (*LoginResult, error) {
	s.logger.Info("Auth: login attempt for email=%s from ip=%s", email, ipAddress)

	user, err := s.store.GetUserByEmail(email)
	if errors.Is(err, sql.ErrNoRows) {
		// Generic error to prevent user enumeration
		s.logger.Debug("Auth: user not found: %s", email)
		return nil, ErrAuthInvalidCredentials
	}
	if err != nil {
		return nil, WrapInternalError(err)
	}

	if !user.IsActive {
		// Same error as a bad password so callers cannot tell a disabled
		// account from a wrong credential.
		s.logger.Info("Auth: login denied for disabled user=%s", email)
		return nil, ErrAuthInvalidCredentials
	}

	if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
		s.logger.Info("Auth: invalid password for user=%s", email)
		return nil, ErrAuthInvalidCredentials
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		return nil, WrapInternalError(err)
	}

	tokenHash := auth.HashToken(token)
	tokenPrefix := auth.ExtractTokenPrefix(token)

	if _, err := s.store.CreateSession(tokenHash, tokenPrefix, user.ID, ipAddress, userAgent); err != nil {
		return nil, WrapInternalError(err)
	}

	if err := s.store.RecordLogin(user.ID); err != nil {
		s.logger.Warn("Auth: failed to record login time for user=%s: %v", email, err)
	}

	s.logger.Info("Auth: user=%s logged in from ip=%s (token prefix=%s)", email, ipAddress, tokenPrefix)

	return &LoginResult{
		Token:                  token,
		User:                   &user.User,
		PasswordChangeRequired: user.IsTemporaryPassword,
	}, nil
}

// Logout invalidates a session by its token.
func (s *AuthService) Logout(token string) error {
	tokenHash := auth.HashToken(token)
	return s.store.DeleteSession(tokenHash)
}

// IsBootstrapped returns true if at least one user exists.
func (s *AuthService) IsBootstrapped() (bool, error) {
	count, err := s.store.CountUsers()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ============================================================================
// Password Lifecycle
// ============================================================================

// ChangePassword lets a user replace their own password after proving they
// know the current one. All of the user's sessions are invalidated, so the
// caller must log in again with the new password.
func (s *AuthService) ChangePassword(actor *auth.Identity, currentPassword, newPassword string) error {
	user, err := s.store.GetUserByID(actor.User.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAuthUserNotFound
	}
	if err != nil {
		return WrapInternalError(err)
	}

	if err := auth.VerifyPassword(currentPassword, user.PasswordHash); err != nil {
		s.logger.Info("Auth: password change rejected for user=%s (current password mismatch)", user.Email)
		return ErrAuthInvalidCredentials
	}

	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return WrapInternalError(err)
	}

	// Setting one's own password always clears the temporary flag.
	if err := s.store.UpdateUserPassword(user.ID, hash, false); err != nil {
		return WrapInternalError(err)
	}

	if err := s.store.DeleteUserSessions(user.ID); err != nil {
		s.logger.Warn("Auth: failed to invalidate sessions after password change for user=%s: %v", user.Email, err)
	}

	s.logger.Info("Auth: password changed for user=%s, sessions invalidated", user.Email)
	return nil
}

// ResetPassword issues a fresh temporary password for a user. Only admins may
// call this. The plaintext is returned once and never stored; the user must
// change it at next login. All of the target's sessions are invalidated.
func (s *AuthService) ResetPassword(actor *auth.Identity, userID int64) (string, error) {
	if !actor.User.IsAdmin() {
		return "", ErrAuthForbidden
	}

	user, err := s.store.GetUserByID(userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrAuthUserNotFound
	}
	if err != nil {
		return "", WrapInternalError(err)
	}

	tempPassword, err := auth.GenerateTemporaryPassword()
	if err != nil {
		return "", WrapInternalError(err)
	}

	hash, err := auth.HashPassword(tempPassword)
	if err != nil {
		return "", WrapInternalError(err)
	}

	if err := s.store.UpdateUserPassword(user.ID, hash, true); err != nil {
		return "", WrapInternalError(err)
	}

	if err := s.store.DeleteUserSessions(user.ID); err != nil {
		s.logger.Warn("Auth: failed to invalidate sessions after password reset for user=%s: %v", user.Email, err)
	}

	s.logger.Info("Auth: password reset for user=%s by=%s", user.Email, actor.User.Email)
	return tempPassword, nil
}

// validatePassword enforces the length bounds for new passwords.
func validatePassword(password string) error {
	if len(password) < constants.AuthMinPasswordLength {
		return NewServiceError(constants.ErrCodeAuthPasswordTooWeak,
			fmt.Sprintf("password must be at least %d characters", constants.AuthMinPasswordLength))
	}
	if len(password) > constants.AuthMaxPasswordLength {
		return NewServiceError(constants.ErrCodeAuthPasswordTooWeak,
			fmt.Sprintf("password must be at most %d characters", constants.AuthMaxPasswordLength))
	}
	return nil
}

// ============================================================================
// Session Cleanup
// ============================================================================

// Stop stops the session cleanup goroutine (call during graceful shutdown).
func (s *AuthService) Stop() {
	close(s.stopClean)
}

// sessionCleanupLoop periodically purges expired sessions from the database.
func (s *AuthService) sessionCleanupLoop() {
	ticker := time.NewTicker(constants.AuthSessionCleanupInterval)
	defer ticker.Stop()

	s.logger.Info("Auth: session cleanup goroutine started (interval=%s)", constants.AuthSessionCleanupInterval)

	for {
		select {
		case <-s.stopClean:
			s.logger.Info("Auth: session cleanup goroutine stopped")
			return
		case <-ticker.C:
			removed, err := s.store.CleanupExpiredSessions()
			if err != nil {
				s.logger.Error("Auth: session cleanup failed: %v", err)
				continue
			}
			if removed > 0 {
				s.logger.Info("Auth: session cleanup removed %d expired sessions", removed)
			} else {
				s.logger.Debug("Auth: session cleanup found no expired sessions")
			}
		}
	}
}
