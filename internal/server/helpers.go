package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"papervault/internal/audit"
	"papervault/internal/auth"
	"papervault/internal/constants"
)

// getClientIP extracts the client IP address from the request
// It checks proxy headers first, then falls back to RemoteAddr
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (reverse proxy)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first IP in the chain (original client)
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	ip := r.RemoteAddr
	// Remove port if present
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// audit enqueues one audit entry for this request. Fire-and-forget: the
// HTTP outcome never depends on the audit write.
func (s *Server) audit(r *http.Request, identity *auth.Identity, action, status, resourceType, resourceID string, details interface{}) {
	if s.app.AuditLogger == nil {
		return
	}
	entry := audit.Entry{
		Action:       action,
		Status:       status,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    getClientIP(r),
		UserAgent:    r.UserAgent(),
		Details:      details,
	}
	if identity != nil && identity.User != nil {
		entry.UserID = &identity.User.ID
		entry.UserEmail = identity.User.Email
	}
	s.app.AuditLogger.Record(entry)
}

// requireAuth extracts the authenticated identity from the request.
// On failure it audits the classified reason and writes a 401 response.
func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) *auth.Identity {
	identity, ok := auth.RequireAuth(r)
	if ok {
		return identity
	}

	reason := string(auth.FailureNoToken)
	tokenPrefix := ""
	if res := auth.GetResolution(r); res != nil {
		reason = string(res.Failure)
		tokenPrefix = res.TokenPrefix
	}
	s.audit(r, nil, constants.AuditActionAccessAttempt, constants.AuditStatusFailed, "", "",
		audit.AccessAttemptDetails{Reason: reason, TokenPrefix: tokenPrefix, Path: r.URL.Path})

	WriteError(w, http.StatusUnauthorized, "Authentication required", constants.ErrCodeAuthRequired)
	return nil
}

// requireAdmin returns the identity when it holds an admin role, otherwise
// audits the blocked attempt and writes a 403 response.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) *auth.Identity {
	identity := s.requireAuth(w, r)
	if identity == nil {
		return nil
	}
	if !identity.User.IsAdmin() {
		s.audit(r, identity, constants.AuditActionAccessAttempt, constants.AuditStatusBlocked, "", "",
			audit.AccessAttemptDetails{Reason: "role_denied", Path: r.URL.Path})
		WriteError(w, http.StatusForbidden, "Admin role required", constants.ErrCodeAuthForbidden)
		return nil
	}
	return identity
}

// parseID parses a positive int64 path or query component.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// extractRequestToken mirrors the auth middleware's transport rules:
// the session cookie wins over the Authorization header.
func extractRequestToken(r *http.Request) string {
	if cookie, err := r.Cookie(constants.AuthCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get(constants.HeaderAuthorization)
	if strings.HasPrefix(header, constants.AuthBearerPrefix) {
		return strings.TrimPrefix(header, constants.AuthBearerPrefix)
	}
	return ""
}

// setSessionCookie attaches the session token cookie to the response.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.app.Config.Auth.SessionDuration()),
		HttpOnly: true,
		Secure:   !s.app.Config.DevMode,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearSessionCookie expires the session cookie.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !s.app.Config.DevMode,
		SameSite: http.SameSiteStrictMode,
	})
}
