package constants

// Audit Log Action Types — Authentication
const (
	AuditActionLogin          = "login"
	AuditActionLogout         = "logout"
	AuditActionAccessAttempt  = "access_attempt"
	AuditActionPasswordChange = "password_change"
	AuditActionPasswordReset  = "password_reset"
)

// Audit Log Action Types — User Management
const (
	AuditActionUserCreation = "user_creation"
	AuditActionUserUpdate   = "user_update"
)

// Audit Log Action Types — Papers
const (
	AuditActionPaperUpload    = "paper_upload"
	AuditActionPaperView      = "paper_view"
	AuditActionPapersListView = "papers_list_view"
	AuditActionPaperUpdate    = "paper_update"
	AuditActionPaperDelete    = "paper_delete"
)

// Audit Log Action Types — Grants
const (
	AuditActionPaperAssignment    = "paper_assignment"
	AuditActionPaperAccessRevoked = "paper_access_revoked"
)

// AllAuditActions returns every defined audit action.
var AllAuditActions = []string{
	AuditActionLogin,
	AuditActionLogout,
	AuditActionAccessAttempt,
	AuditActionPasswordChange,
	AuditActionPasswordReset,
	AuditActionUserCreation,
	AuditActionUserUpdate,
	AuditActionPaperUpload,
	AuditActionPaperView,
	AuditActionPapersListView,
	AuditActionPaperUpdate,
	AuditActionPaperDelete,
	AuditActionPaperAssignment,
	AuditActionPaperAccessRevoked,
}

// Audit Log Statuses
const (
	AuditStatusSuccess = "success"
	AuditStatusFailed  = "failed"
	AuditStatusBlocked = "blocked"
)

// Audit Log Configuration
const (
	AuditLogTableName      = "audit_log"
	AuditDefaultQueryLimit = 100
	AuditMaxQueryLimit     = 1000
	AuditQueueSize         = 256
)
