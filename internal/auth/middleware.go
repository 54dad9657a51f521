package auth

import (
	"context"
	"net/http"
	"strings"

	"papervault/internal/constants"
	"papervault/internal/logger"
)

// contextKey is an unexported type for context keys in this package.
type contextKey int

const (
	resolutionContextKey contextKey = iota
)

// Resolution is the outcome of resolving credentials on a request. Exactly
// one of Identity or Failure is meaningful: a resolved identity clears the
// failure, and a failure carries the reason for audit records.
type Resolution struct {
	Identity    *Identity
	Failure     FailureReason
	TokenPrefix string // visible prefix of the presented token, for logging
}

// StoreProvider is a function that returns the current auth store.
// The middleware resolves the store on each request instead of holding a
// fixed reference, so it adapts if the auth system is re-initialised.
type StoreProvider func() *Store

// Middleware provides HTTP middleware for authentication.
type Middleware struct {
	getStore StoreProvider
	logger   *logger.Logger
}

// NewMiddleware creates a new auth middleware with a dynamic store provider.
func NewMiddleware(provider StoreProvider, log *logger.Logger) *Middleware {
	return &Middleware{getStore: provider, logger: log}
}

// Authenticate extracts and validates the identity from the request.
// Sets a Resolution on context. Handlers that require auth use RequireAuth
// to check. This middleware always calls next — it does not block
// unauthenticated requests. Individual handlers decide whether auth is
// required for their endpoint.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolution := m.resolve(r)
		ctx := context.WithValue(r.Context(), resolutionContextKey, resolution)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolve attempts to extract a valid identity from the request.
// The session cookie takes precedence over the Authorization header.
func (m *Middleware) resolve(r *http.Request) *Resolution {
	token := extractToken(r)
	if token == "" {
		return &Resolution{Failure: FailureNoToken}
	}

	prefix := ExtractTokenPrefix(token)

	if !IsSessionToken(token) {
		m.logger.Debug("Auth: malformed token (prefix=%s)", prefix)
		return &Resolution{Failure: FailureMalformedToken, TokenPrefix: prefix}
	}

	store := m.getStore()
	if store == nil {
		return &Resolution{Failure: FailureUnknownOrInactiveUser, TokenPrefix: prefix}
	}

	tokenHash := HashToken(token)
	session, user, err := store.GetSessionByTokenHash(tokenHash)
	if err != nil {
		m.logger.Error("Auth: session lookup failed: %v", err)
		return &Resolution{Failure: FailureUnknownOrInactiveUser, TokenPrefix: prefix}
	}

	if session == nil || user == nil {
		// Distinguish an expired session from a missing one so the audit
		// trail records the real reason.
		expired, _, ierr := store.SessionExistsExpiredOrInactive(tokenHash)
		if ierr != nil {
			m.logger.Warn("Auth: failed to classify rejected token: %v", ierr)
		}
		if expired {
			m.logger.Debug("Auth: expired session token (prefix=%s)", prefix)
			return &Resolution{Failure: FailureExpiredToken, TokenPrefix: prefix}
		}
		m.logger.Debug("Auth: unknown or inactive session token (prefix=%s)", prefix)
		return &Resolution{Failure: FailureUnknownOrInactiveUser, TokenPrefix: prefix}
	}

	return &Resolution{
		Identity:    &Identity{User: user},
		TokenPrefix: prefix,
	}
}

// extractToken pulls the session token from the request. The cookie wins
// when both the cookie and the Authorization header are present.
func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie(constants.AuthCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get(constants.HeaderAuthorization)
	if strings.HasPrefix(authHeader, constants.AuthBearerPrefix) {
		return strings.TrimPrefix(authHeader, constants.AuthBearerPrefix)
	}

	return ""
}

// GetResolution retrieves the auth resolution from the request context.
// Returns nil if the middleware did not run.
func GetResolution(r *http.Request) *Resolution {
	resolution, _ := r.Context().Value(resolutionContextKey).(*Resolution)
	return resolution
}

// GetIdentity retrieves the authenticated identity from the request context.
// Returns nil if no identity is present (unauthenticated request).
func GetIdentity(r *http.Request) *Identity {
	resolution := GetResolution(r)
	if resolution == nil {
		return nil
	}
	return resolution.Identity
}

// RequireAuth is a helper that extracts the identity and returns false if not present.
// Handlers use this to enforce authentication:
//
//	identity, ok := auth.RequireAuth(r)
//	if !ok { WriteError(w, 401, ...); return }
func RequireAuth(r *http.Request) (*Identity, bool) {
	identity := GetIdentity(r)
	if identity == nil || identity.User == nil {
		return nil, false
	}
	return identity, true
}
