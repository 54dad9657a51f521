// Package auth provides authentication and authorization for the papervault
// system. It implements a role-based model where admins bypass per-paper
// checks and researchers/reviewers need an explicit active grant.
package auth

// User represents an authenticated user in the system.
// Sensitive fields (password hash) are excluded from JSON serialization.
type User struct {
	ID                  int64  `json:"id"`
	Email               string `json:"email"`
	Name                string `json:"name"`
	Role                string `json:"role"`
	IsTemporaryPassword bool   `json:"is_temporary_password"`
	IsActive            bool   `json:"is_active"`
	IsBootstrap         bool   `json:"is_bootstrap"`
	LastLoginAt         *int64 `json:"last_login_at,omitempty"`
	CreatedAt           int64  `json:"created_at"`
	UpdatedAt           int64  `json:"updated_at"`
	CreatedBy           *int64 `json:"created_by,omitempty"`
}

// UserWithSensitive includes the password hash for internal use.
// It must never be serialized to JSON or returned in API responses.
type UserWithSensitive struct {
	User
	PasswordHash string `json:"-"`
}

// IsAdmin reports whether the user holds an administrative role.
// Admins see and access every paper without an explicit grant.
func (u *User) IsAdmin() bool {
	return u.Role == "admin" || u.Role == "super_admin"
}

// IsSuperAdmin reports whether the user holds the super_admin role.
func (u *User) IsSuperAdmin() bool {
	return u.Role == "super_admin"
}

// Grant represents an active or revoked access grant for one (paper, user) pair.
type Grant struct {
	ID        int64  `json:"id"`
	PaperID   int64  `json:"paper_id"`
	UserID    int64  `json:"user_id"`
	GrantedBy int64  `json:"granted_by"`
	IsActive  bool   `json:"is_active"`
	CreatedAt int64  `json:"created_at"`
	RevokedAt *int64 `json:"revoked_at,omitempty"`
	RevokedBy *int64 `json:"revoked_by,omitempty"`
}

// Session represents an active login session (opaque token stored hashed).
type Session struct {
	TokenHash   string `json:"-"`
	TokenPrefix string `json:"token_prefix"`
	UserID      int64  `json:"user_id"`
	IPAddress   string `json:"ip_address"`
	UserAgent   string `json:"user_agent,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Identity represents the resolved identity of an authenticated request.
// It is attached to the request context by the auth middleware.
type Identity struct {
	User *User `json:"user"`
}

// FailureReason classifies why a request failed to authenticate.
type FailureReason string

const (
	FailureNoToken               FailureReason = "no_token"
	FailureMalformedToken        FailureReason = "malformed_token"
	FailureExpiredToken          FailureReason = "expired_token"
	FailureUnknownOrInactiveUser FailureReason = "unknown_or_inactive_user"
)
