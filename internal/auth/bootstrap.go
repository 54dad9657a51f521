package auth

import (
	"fmt"

	"papervault/internal/constants"
	"papervault/internal/logger"
)

// BootstrapResult contains the credentials generated during bootstrap.
// These are shown once and never again.
type BootstrapResult struct {
	Email    string
	Password string
}

// Bootstrap creates the initial super admin if no users exist.
// Returns the plaintext credentials that must be shown to the operator once.
// Returns nil if users already exist (no bootstrap needed).
func Bootstrap(store *Store, log *logger.Logger) (*BootstrapResult, error) {
	count, err := store.CountUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to check user count: %w", err)
	}

	if count > 0 {
		log.Debug("Auth: %d user(s) exist, skipping bootstrap", count)
		return nil, nil
	}

	log.Info("Auth: no users found, bootstrapping super admin account...")

	password, err := GenerateTemporaryPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate password: %w", err)
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := store.CreateBootstrapUser(
		constants.AuthBootstrapEmail,
		constants.AuthBootstrapName,
		passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap user: %w", err)
	}

	log.Info("Auth: bootstrap super admin '%s' created (id=%d)", user.Email, user.ID)

	return &BootstrapResult{
		Email:    user.Email,
		Password: password,
	}, nil
}
