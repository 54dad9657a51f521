package auth

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"papervault/internal/constants"
)

// ErrGrantConflict is returned when an active grant already exists for the
// same (paper, user) pair. The partial unique index enforces this even under
// concurrent inserts.
type ErrGrantConflict struct {
	PaperID int64
	UserID  int64
}

func (e *ErrGrantConflict) Error() string {
	return fmt.Sprintf("active grant already exists for paper %d and user %d", e.PaperID, e.UserID)
}

// Store provides database operations for users, sessions, and grants.
type Store struct {
	db *sql.DB
}

// NewStore creates a new auth store backed by the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ============================================================================
// User Operations
// ============================================================================

// CreateUser inserts a new user into the database.
// Returns the created user with its assigned ID.
func (s *Store) CreateUser(email, name, role, passwordHash string, isTemporary bool, createdBy *int64) (*User, error) {
	now := time.Now().Unix()
	result, err := s.db.Exec(`
		INSERT INTO users (email, name, role, password_hash, is_temporary_password,
		                   is_active, is_bootstrap, created_at, updated_at, created_by)
		VALUES (?, ?, ?, ?, ?, 1, 0, ?, ?, ?)
	`, email, name, role, passwordHash, isTemporary, now, now, createdBy)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user id: %w", err)
	}

	return &User{
		ID:                  id,
		Email:               email,
		Name:                name,
		Role:                role,
		IsTemporaryPassword: isTemporary,
		IsActive:            true,
		IsBootstrap:         false,
		CreatedAt:           now,
		UpdatedAt:           now,
		CreatedBy:           createdBy,
	}, nil
}

// CreateBootstrapUser inserts the initial super admin with is_bootstrap=1.
func (s *Store) CreateBootstrapUser(email, name, passwordHash string) (*User, error) {
	now := time.Now().Unix()
	result, err := s.db.Exec(`
		INSERT INTO users (email, name, role, password_hash, is_temporary_password,
		                   is_active, is_bootstrap, created_at, updated_at, created_by)
		VALUES (?, ?, ?, ?, 1, 1, 1, ?, ?, NULL)
	`, email, name, constants.RoleSuperAdmin, passwordHash, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get bootstrap user id: %w", err)
	}

	return &User{
		ID:                  id,
		Email:               email,
		Name:                name,
		Role:                constants.RoleSuperAdmin,
		IsTemporaryPassword: true,
		IsActive:            true,
		IsBootstrap:         true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// GetUserByID retrieves a user by ID.
func (s *Store) GetUserByID(id int64) (*UserWithSensitive, error) {
	return s.scanUser(s.db.QueryRow(`
		SELECT id, email, name, role, password_hash, is_temporary_password,
		       is_active, is_bootstrap, last_login_at, created_at, updated_at, created_by
		FROM users WHERE id = ?
	`, id))
}

// GetUserByEmail retrieves a user by email. Matching is case-insensitive
// (the email column is COLLATE NOCASE).
func (s *Store) GetUserByEmail(email string) (*UserWithSensitive, error) {
	return s.scanUser(s.db.QueryRow(`
		SELECT id, email, name, role, password_hash, is_temporary_password,
		       is_active, is_bootstrap, last_login_at, created_at, updated_at, created_by
		FROM users WHERE email = ?
	`, email))
}

// ListUsers returns all users (without sensitive fields).
func (s *Store) ListUsers() ([]User, error) {
	rows, err := s.db.Query(`
		SELECT id, email, name, role, is_temporary_password, is_active, is_bootstrap,
		       last_login_at, created_at, updated_at, created_by
		FROM users ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var lastLogin sql.NullInt64
		var createdBy sql.NullInt64
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.IsTemporaryPassword,
			&u.IsActive, &u.IsBootstrap, &lastLogin, &u.CreatedAt, &u.UpdatedAt, &createdBy); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if lastLogin.Valid {
			u.LastLoginAt = &lastLogin.Int64
		}
		if createdBy.Valid {
			u.CreatedBy = &createdBy.Int64
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SearchUsers returns one page of users whose name or email contains the
// search string (case-insensitive), plus the total match count. An empty
// search matches everyone.
func (s *Store) SearchUsers(search string, limit, offset int) ([]User, int64, error) {
	where := ""
	args := []interface{}{}
	if search != "" {
		where = " WHERE name LIKE ? OR email LIKE ?"
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}

	var total int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM users"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := s.db.Query(`
		SELECT id, email, name, role, is_temporary_password, is_active, is_bootstrap,
		       last_login_at, created_at, updated_at, created_by
		FROM users`+where+` ORDER BY id ASC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var lastLogin sql.NullInt64
		var createdBy sql.NullInt64
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.IsTemporaryPassword,
			&u.IsActive, &u.IsBootstrap, &lastLogin, &u.CreatedAt, &u.UpdatedAt, &createdBy); err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		if lastLogin.Valid {
			u.LastLoginAt = &lastLogin.Int64
		}
		if createdBy.Valid {
			u.CreatedBy = &createdBy.Int64
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// UpdateUser updates a user's name, role, and active status.
func (s *Store) UpdateUser(id int64, name, role string, isActive bool) error {
	now := time.Now().Unix()
	_, err := s.db.Exec(`
		UPDATE users SET name = ?, role = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`, name, role, isActive, now, id)
	return err
}

// UpdateUserPassword replaces a user's password hash. The temporary flag is
// cleared when the user sets their own password and set when an admin resets it.
func (s *Store) UpdateUserPassword(id int64, passwordHash string, isTemporary bool) error {
	now := time.Now().Unix()
	_, err := s.db.Exec(`
		UPDATE users SET password_hash = ?, is_temporary_password = ?, updated_at = ?
		WHERE id = ?
	`, passwordHash, isTemporary, now, id)
	return err
}

// RecordLogin stamps the last successful login time for a user.
func (s *Store) RecordLogin(id int64) error {
	now := time.Now().Unix()
	_, err := s.db.Exec(`
		UPDATE users SET last_login_at = ? WHERE id = ?
	`, now, id)
	return err
}

// CountUsers returns the total number of users.
func (s *Store) CountUsers() (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// scanUser scans a single user row including sensitive fields.
func (s *Store) scanUser(row *sql.Row) (*UserWithSensitive, error) {
	var u UserWithSensitive
	var lastLogin sql.NullInt64
	var createdBy sql.NullInt64

	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.IsTemporaryPassword,
		&u.IsActive, &u.IsBootstrap, &lastLogin, &u.CreatedAt, &u.UpdatedAt, &createdBy,
	)
	if err != nil {
		return nil, err
	}

	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Int64
	}
	if createdBy.Valid {
		u.CreatedBy = &createdBy.Int64
	}

	return &u, nil
}

// ============================================================================
// Grant Operations
// ============================================================================

// CreateGrant inserts a new active access grant for a (paper, user) pair.
// Returns ErrGrantConflict if an active grant already exists.
func (s *Store) CreateGrant(paperID, userID, grantedBy int64) (*Grant, error) {
	now := time.Now().Unix()
	result, err := s.db.Exec(`
		INSERT INTO paper_grants (paper_id, user_id, granted_by, is_active, created_at)
		VALUES (?, ?, ?, 1, ?)
	`, paperID, userID, grantedBy, now)
	if err != nil {
		if sqliteErr, ok := err.(sqlite3.Error); ok &&
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, &ErrGrantConflict{PaperID: paperID, UserID: userID}
		}
		return nil, fmt.Errorf("failed to create grant: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get grant id: %w", err)
	}

	return &Grant{
		ID:        id,
		PaperID:   paperID,
		UserID:    userID,
		GrantedBy: grantedBy,
		IsActive:  true,
		CreatedAt: now,
	}, nil
}

// GetActiveGrant returns the active grant for a (paper, user) pair, or nil.
func (s *Store) GetActiveGrant(paperID, userID int64) (*Grant, error) {
	var g Grant
	var revokedAt, revokedBy sql.NullInt64
	err := s.db.QueryRow(`
		SELECT id, paper_id, user_id, granted_by, is_active, created_at, revoked_at, revoked_by
		FROM paper_grants WHERE paper_id = ? AND user_id = ? AND is_active = 1
	`, paperID, userID).Scan(&g.ID, &g.PaperID, &g.UserID, &g.GrantedBy,
		&g.IsActive, &g.CreatedAt, &revokedAt, &revokedBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get grant: %w", err)
	}
	return &g, nil
}

// GetGrantByID returns a grant by its row ID (active or revoked), or nil.
func (s *Store) GetGrantByID(id int64) (*Grant, error) {
	var g Grant
	var revokedAt, revokedBy sql.NullInt64
	err := s.db.QueryRow(`
		SELECT id, paper_id, user_id, granted_by, is_active, created_at, revoked_at, revoked_by
		FROM paper_grants WHERE id = ?
	`, id).Scan(&g.ID, &g.PaperID, &g.UserID, &g.GrantedBy,
		&g.IsActive, &g.CreatedAt, &revokedAt, &revokedBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get grant: %w", err)
	}
	if revokedAt.Valid {
		g.RevokedAt = &revokedAt.Int64
	}
	if revokedBy.Valid {
		g.RevokedBy = &revokedBy.Int64
	}
	return &g, nil
}

// HasActiveGrant reports whether an active grant exists for a (paper, user) pair.
func (s *Store) HasActiveGrant(paperID, userID int64) (bool, error) {
	var exists int
	err := s.db.QueryRow(`
		SELECT 1 FROM paper_grants WHERE paper_id = ? AND user_id = ? AND is_active = 1
	`, paperID, userID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check grant: %w", err)
	}
	return true, nil
}

// RevokeGrant deactivates the active grant for a (paper, user) pair.
// Returns the revoked grant, or nil when no active grant existed.
func (s *Store) RevokeGrant(paperID, userID, revokedBy int64) (*Grant, error) {
	grant, err := s.GetActiveGrant(paperID, userID)
	if err != nil {
		return nil, err
	}
	if grant == nil {
		return nil, nil
	}

	now := time.Now().Unix()
	_, err = s.db.Exec(`
		UPDATE paper_grants SET is_active = 0, revoked_at = ?, revoked_by = ?
		WHERE id = ?
	`, now, revokedBy, grant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke grant: %w", err)
	}

	grant.IsActive = false
	grant.RevokedAt = &now
	grant.RevokedBy = &revokedBy
	return grant, nil
}

// ListGrantsForPaper returns all grants (including revoked) for a paper.
func (s *Store) ListGrantsForPaper(paperID int64) ([]Grant, error) {
	return s.listGrants(`
		SELECT id, paper_id, user_id, granted_by, is_active, created_at, revoked_at, revoked_by
		FROM paper_grants WHERE paper_id = ? ORDER BY id ASC
	`, paperID)
}

// ListActiveGrantsForUser returns all active grants for a user.
func (s *Store) ListActiveGrantsForUser(userID int64) ([]Grant, error) {
	return s.listGrants(`
		SELECT id, paper_id, user_id, granted_by, is_active, created_at, revoked_at, revoked_by
		FROM paper_grants WHERE user_id = ? AND is_active = 1 ORDER BY id ASC
	`, userID)
}

func (s *Store) listGrants(query string, args ...interface{}) ([]Grant, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load grants: %w", err)
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		var revokedAt, revokedBy sql.NullInt64
		if err := rows.Scan(&g.ID, &g.PaperID, &g.UserID, &g.GrantedBy,
			&g.IsActive, &g.CreatedAt, &revokedAt, &revokedBy); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		if revokedAt.Valid {
			g.RevokedAt = &revokedAt.Int64
		}
		if revokedBy.Valid {
			g.RevokedBy = &revokedBy.Int64
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// ============================================================================
// Session Operations
// ============================================================================

// CreateSession inserts a new session into the database.
func (s *Store) CreateSession(tokenHash, tokenPrefix string, userID int64, ipAddress, userAgent string) (*Session, error) {
	now := time.Now().Unix()
	expiresAt := now + int64(constants.AuthSessionDuration.Seconds())

	_, err := s.db.Exec(`
		INSERT INTO sessions (token_hash, token_prefix, user_id, ip_address, user_agent,
		                      created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, tokenHash, tokenPrefix, userID, ipAddress, userAgent, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &Session{
		TokenHash:   tokenHash,
		TokenPrefix: tokenPrefix,
		UserID:      userID,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}, nil
}

// GetSessionByTokenHash retrieves a session by its hashed token.
// The user's is_active flag is re-checked on every lookup so deactivation
// takes effect immediately, not at token expiry.
// Returns (nil, nil, nil) if the session doesn't exist, is expired, or the
// user is inactive.
func (s *Store) GetSessionByTokenHash(tokenHash string) (*Session, *User, error) {
	now := time.Now().Unix()

	var session Session
	var user User
	var lastLogin sql.NullInt64
	err := s.db.QueryRow(`
		SELECT s.token_hash, s.token_prefix, s.user_id, s.ip_address, s.user_agent,
		       s.created_at, s.expires_at,
		       u.id, u.email, u.name, u.role, u.is_temporary_password,
		       u.is_active, u.is_bootstrap, u.last_login_at, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token_hash = ? AND s.expires_at > ? AND u.is_active = 1
	`, tokenHash, now).Scan(
		&session.TokenHash, &session.TokenPrefix, &session.UserID,
		&session.IPAddress, &session.UserAgent,
		&session.CreatedAt, &session.ExpiresAt,
		&user.ID, &user.Email, &user.Name, &user.Role, &user.IsTemporaryPassword,
		&user.IsActive, &user.IsBootstrap, &lastLogin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	if lastLogin.Valid {
		user.LastLoginAt = &lastLogin.Int64
	}

	return &session, &user, nil
}

// SessionExistsExpiredOrInactive reports whether a token hash matches a
// session that exists but is expired or belongs to an inactive user. Used to
// distinguish expired_token from unknown_or_inactive_user in audit records.
func (s *Store) SessionExistsExpiredOrInactive(tokenHash string) (expired bool, inactive bool, err error) {
	now := time.Now().Unix()
	var expiresAt int64
	var isActive bool
	qerr := s.db.QueryRow(`
		SELECT s.expires_at, u.is_active
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token_hash = ?
	`, tokenHash).Scan(&expiresAt, &isActive)
	if qerr == sql.ErrNoRows {
		return false, false, nil
	}
	if qerr != nil {
		return false, false, fmt.Errorf("failed to inspect session: %w", qerr)
	}
	if expiresAt <= now {
		return true, false, nil
	}
	if !isActive {
		return false, true, nil
	}
	return false, false, nil
}

// DeleteSession removes a session by its hashed token.
func (s *Store) DeleteSession(tokenHash string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
	return err
}

// DeleteUserSessions removes all sessions for a user (e.g., on password change or deactivation).
func (s *Store) DeleteUserSessions(userID int64) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

// CleanupExpiredSessions removes all expired sessions from the database.
// Returns the number of sessions removed.
func (s *Store) CleanupExpiredSessions() (int64, error) {
	now := time.Now().Unix()
	result, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return result.RowsAffected()
}
