package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"papervault/internal/audit"
	"papervault/internal/constants"
	"papervault/internal/services"
)

// =============================================================================
// User Management
// =============================================================================

// /api/admin/users — POST create, GET list
func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleAdminCreateUser(w, r)
	case http.MethodGet:
		s.handleAdminListUsers(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	identity := s.requireAdmin(w, r)
	if identity == nil {
		return
	}

	var req services.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON", constants.ErrCodeInvalidRequest)
		return
	}

	resp, err := s.app.Services.User.CreateUser(identity, req)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	s.audit(r, identity, constants.AuditActionUserCreation, constants.AuditStatusSuccess,
		"user", strconv.FormatInt(resp.User.ID, 10),
		audit.UserCreationDetails{CreatedUserID: resp.User.ID, CreatedEmail: resp.User.Email, Role: resp.User.Role})

	// The temporary password appears here once and is never retrievable again.
	WriteSuccess(w, map[string]interface{}{
		"user":               resp.User,
		"temporary_password": resp.TemporaryPassword,
	})
}

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	identity := s.requireAdmin(w, r)
	if identity == nil {
		return
	}

	search := r.URL.Query().Get("search")
	limit := parseIntQuery(r, "limit", constants.DefaultPageSize, constants.MaxPageSize)
	offset := parseIntQuery(r, "offset", 0, 1<<30)

	users, total, err := s.app.Services.Auth.GetStore().SearchUsers(search, limit, offset)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"users":  users,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// /api/admin/users/{id}[/reset-password|/papers]
func (s *Server) handleAdminUserRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/admin/users/")
	parts := strings.SplitN(rest, "/", 2)

	userID, ok := parseID(parts[0])
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid user id", constants.ErrCodeInvalidRequest)
		return
	}

	if len(parts) == 1 {
		s.handleAdminUpdateUser(w, r, userID)
		return
	}
	switch parts[1] {
	case "reset-password":
		s.handleAdminResetPassword(w, r, userID)
	case "papers":
		s.handleAdminUserPapers(w, r, userID)
	default:
		WriteError(w, http.StatusNotFound, "Not found", constants.ErrCodeNotFound)
	}
}

func (s *Server) handleAdminUpdateUser(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity := s.requireAdmin(w, r)
	if identity == nil {
		return
	}

	var req services.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON", constants.ErrCodeInvalidRequest)
		return
	}

	updated, err := s.app.Services.User.UpdateUser(identity, userID, req)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	var fields []string
	if req.Name != nil {
		fields = append(fields, "name")
	}
	if req.Role != nil {
		fields = append(fields, "role")
	}
	if req.IsActive != nil {
		fields = append(fields, "is_active")
	}
	s.audit(r, identity, constants.AuditActionUserUpdate, constants.AuditStatusSuccess,
		"user", strconv.FormatInt(userID, 10),
		audit.UserUpdateDetails{TargetUserID: userID, TargetEmail: updated.Email, FieldsChanged: fields})

	WriteSuccess(w, map[string]interface{}{
		"user": updated,
	})
}

func (s *Server) handleAdminResetPassword(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity := s.requireAdmin(w, r)
	if identity == nil {
		return
	}

	tempPassword, err := s.app.Services.Auth.ResetPassword(identity, userID)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	target, _ := s.app.Services.User.GetUser(userID)
	targetEmail := ""
	if target != nil {
		targetEmail = target.Email
	}
	s.audit(r, identity, constants.AuditActionPasswordReset, constants.AuditStatusSuccess,
		"user", strconv.FormatInt(userID, 10),
		audit.PasswordDetails{TargetUserID: userID, TargetEmail: targetEmail})

	WriteSuccess(w, map[string]interface{}{
		"temporary_password": tempPassword,
	})
}

func (s *Server) handleAdminUserPapers(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity := s.requireAdmin(w, r)
	if identity == nil {
		return
	}

	grants, err := s.app.Services.Grant.ListForUser(identity, userID)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"grants": grants,
	})
}

// =============================================================================
// Paper Assignments (grants)
// =============================================================================

// POST /api/admin/paper-assignments — grant a user access to a paper
func (s *Server) handleAdminCreateAssignment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity := s.requireAdmin(w, r)
	if identity == nil {
		return
	}

	var req struct {
		PaperID int64 `json:"paperId"`
		UserID  int64 `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON", constants.ErrCodeInvalidRequest)
		return
	}
	if req.PaperID < 1 || req.UserID < 1 {
		WriteFieldErrors(w, "paperId and userId are required", []FieldError{
			{Field: "paperId", Message: "required"},
			{Field: "userId", Message: "required"},
		})
		return
	}

	grant, err := s.app.Services.Grant.Assign(identity, req.PaperID, req.UserID)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	s.audit(r, identity, constants.AuditActionPaperAssignment, constants.AuditStatusSuccess,
		"paper", strconv.FormatInt(grant.PaperID, 10),
		audit.GrantDetails{GrantID: grant.ID, PaperID: grant.PaperID, TargetUserID: grant.UserID})

	WriteSuccess(w, map[string]interface{}{
		"grant": grant,
	})
}

// DELETE /api/admin/paper-assignments/{id} — revoke a grant
func (s *Server) handleAdminDeleteAssignment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity := s.requireAdmin(w, r)
	if identity == nil {
		return
	}

	grantID, ok := parseID(strings.TrimPrefix(r.URL.Path, "/api/admin/paper-assignments/"))
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid grant id", constants.ErrCodeInvalidRequest)
		return
	}

	revoked, err := s.app.Services.Grant.Revoke(identity, grantID)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	s.audit(r, identity, constants.AuditActionPaperAccessRevoked, constants.AuditStatusSuccess,
		"paper", strconv.FormatInt(revoked.PaperID, 10),
		audit.GrantDetails{GrantID: revoked.ID, PaperID: revoked.PaperID, TargetUserID: revoked.UserID})

	WriteSuccess(w, map[string]interface{}{
		"grant": revoked,
	})
}

// =============================================================================
// Access Logs
// =============================================================================

// GET /api/admin/access-logs — query the audit trail
func (s *Server) handleAdminAccessLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity := s.requireAdmin(w, r)
	if identity == nil {
		return
	}

	q := r.URL.Query()
	opts := audit.QueryOptions{
		Limit:  parseIntQuery(r, "limit", constants.AuditDefaultQueryLimit, constants.AuditMaxQueryLimit),
		Offset: parseIntQuery(r, "offset", 0, 1<<30),
		Action: q.Get("action"),
		Status: q.Get("status"),
	}
	if userID, ok := parseID(q.Get("userId")); ok {
		opts.UserID = userID
	}
	if paperID, ok := parseID(q.Get("paperId")); ok {
		opts.ResourceType = "paper"
		opts.ResourceID = strconv.FormatInt(paperID, 10)
	}
	if from, err := strconv.ParseInt(q.Get("from"), 10, 64); err == nil {
		opts.Since = from
	}
	if to, err := strconv.ParseInt(q.Get("to"), 10, 64); err == nil {
		opts.Until = to
	}

	entries, err := audit.Query(s.app.DB, opts)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}
	total, err := audit.Count(s.app.DB, opts)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"entries": entries,
		"total":   total,
	})
}

// parseIntQuery reads a bounded non-negative int query parameter.
func parseIntQuery(r *http.Request, name string, def, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
