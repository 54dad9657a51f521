package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"papervault/internal/audit"
	"papervault/internal/auth"
	"papervault/internal/constants"
	"papervault/internal/services"
)

// POST /api/auth/login — Authenticate and receive a session cookie + token
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON", constants.ErrCodeInvalidRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteFieldErrors(w, "Email and password are required", []FieldError{
			{Field: "email", Message: "required"},
			{Field: "password", Message: "required"},
		})
		return
	}

	result, err := s.app.Services.Auth.Login(req.Email, req.Password, getClientIP(r), r.UserAgent())
	if err != nil {
		reason := "unknown"
		if code, ok := services.IsServiceError(err); ok {
			reason = code
		}
		s.audit(r, nil, constants.AuditActionLogin, constants.AuditStatusFailed, "user", "",
			audit.LoginDetails{AttemptedEmail: req.Email, Reason: reason})
		s.handleServiceError(w, err)
		return
	}

	s.audit(r, &auth.Identity{User: result.User}, constants.AuditActionLogin,
		constants.AuditStatusSuccess, "user", strconv.FormatInt(result.User.ID, 10), nil)

	s.setSessionCookie(w, result.Token)
	WriteSuccess(w, map[string]interface{}{
		"token":                    result.Token,
		"user":                     result.User,
		"password_change_required": result.PasswordChangeRequired,
	})
}

// POST /api/auth/logout — Invalidate current session
func (s *Server) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	identity := s.requireAuth(w, r)
	if identity == nil {
		return
	}

	if token := extractRequestToken(r); auth.IsSessionToken(token) {
		if err := s.app.Services.Auth.Logout(token); err != nil {
			s.logger.Warn("Auth: logout failed for user=%s: %v", identity.User.Email, err)
		}
	}

	s.logger.Info("Auth: user=%s logged out", identity.User.Email)
	s.audit(r, identity, constants.AuditActionLogout, constants.AuditStatusSuccess, "", "", nil)

	s.clearSessionCookie(w)
	WriteSuccess(w, nil)
}

// GET /api/auth/me — Current user info
func (s *Server) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	identity := s.requireAuth(w, r)
	if identity == nil {
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"user": identity.User,
	})
}

// PUT /api/auth/change-password — Replace own password
func (s *Server) handleAuthChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	identity := s.requireAuth(w, r)
	if identity == nil {
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON", constants.ErrCodeInvalidRequest)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		WriteFieldErrors(w, "Current and new password are required", []FieldError{
			{Field: "currentPassword", Message: "required"},
			{Field: "newPassword", Message: "required"},
		})
		return
	}

	if err := s.app.Services.Auth.ChangePassword(identity, req.CurrentPassword, req.NewPassword); err != nil {
		s.audit(r, identity, constants.AuditActionPasswordChange, constants.AuditStatusFailed,
			"user", strconv.FormatInt(identity.User.ID, 10),
			audit.PasswordDetails{TargetUserID: identity.User.ID, TargetEmail: identity.User.Email})
		// Wrong current password is a 400 on this endpoint, not a 401
		if code, ok := services.IsServiceError(err); ok && code == constants.ErrCodeAuthInvalidCredentials {
			WriteError(w, http.StatusBadRequest, "Current password is incorrect", code)
			return
		}
		s.handleServiceError(w, err)
		return
	}

	s.audit(r, identity, constants.AuditActionPasswordChange, constants.AuditStatusSuccess,
		"user", strconv.FormatInt(identity.User.ID, 10),
		audit.PasswordDetails{TargetUserID: identity.User.ID, TargetEmail: identity.User.Email})

	// Every session was invalidated, including this one.
	s.clearSessionCookie(w)
	WriteSuccess(w, map[string]interface{}{
		"message": "Password changed; please log in again",
	})
}
