package constants

import "time"

// Roles, ordered from most to least privileged.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleResearcher = "researcher"
	RoleReviewer   = "reviewer"
)

// AllRoles returns every defined role.
var AllRoles = []string{
	RoleSuperAdmin,
	RoleAdmin,
	RoleResearcher,
	RoleReviewer,
}

// Auth Error Codes
const (
	ErrCodeAuthRequired           = "AUTH_REQUIRED"
	ErrCodeAuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	ErrCodeAuthForbidden          = "AUTH_FORBIDDEN"
	ErrCodeAuthUserNotFound       = "AUTH_USER_NOT_FOUND"
	ErrCodeAuthUserExists         = "AUTH_USER_ALREADY_EXISTS"
	ErrCodeAuthUserDisabled       = "AUTH_USER_DISABLED"
	ErrCodeAuthSessionExpired     = "AUTH_SESSION_EXPIRED"
	ErrCodeAuthInvalidToken       = "AUTH_INVALID_TOKEN"
	ErrCodeAuthPasswordTooWeak    = "AUTH_PASSWORD_TOO_WEAK"
	ErrCodeAuthInvalidRole        = "AUTH_INVALID_ROLE"
	ErrCodeAuthGrantExists        = "AUTH_GRANT_ALREADY_EXISTS"
	ErrCodeAuthGrantNotFound      = "AUTH_GRANT_NOT_FOUND"
	ErrCodeAuthSelfDemotion       = "AUTH_SELF_DEMOTION"
)

// Auth HTTP Headers
const (
	HeaderAuthorization = "Authorization"
	AuthBearerPrefix    = "Bearer "
	AuthCookieName      = "token"
)

// Session token prefix (for disambiguation in logs without a DB lookup).
const (
	SessionTokenPrefix = "pvs_"
)

// Auth Configuration
const (
	AuthBcryptCost           = 12
	AuthSessionTokenBytes    = 32 // 256 bits of entropy
	AuthTokenPrefixLength    = 8  // visible prefix for identification in logs
	AuthMinPasswordLength    = 8
	AuthMaxPasswordLength    = 128
	AuthTempPasswordLength   = 12
	AuthBootstrapEmail       = "admin@papervault.local"
	AuthBootstrapName        = "Administrator"
	AuthEmailRegex           = `^[^@\s]+@[^@\s]+\.[^@\s]+$`
	AuthMaxNameLength        = 120
)

// Auth Session Configuration
const (
	AuthSessionDuration        = 24 * time.Hour
	AuthSessionCleanupInterval = 30 * time.Minute
)
