package audit

import (
	"papervault/internal/constants"
)

// Entry represents a single audit log entry.
type Entry struct {
	ID           int64       `json:"id"`
	Timestamp    int64       `json:"timestamp"`
	UserID       *int64      `json:"user_id,omitempty"`
	UserEmail    string      `json:"user_email"`
	Action       string      `json:"action"`
	Status       string      `json:"status"`
	ResourceType string      `json:"resource_type,omitempty"`
	ResourceID   string      `json:"resource_id,omitempty"`
	IPAddress    string      `json:"ip_address"`
	UserAgent    string      `json:"user_agent,omitempty"`
	Details      interface{} `json:"details,omitempty"`
}

// =============================================================================
// Detail Structs — Authentication
// =============================================================================

// LoginDetails holds details for login actions.
type LoginDetails struct {
	AttemptedEmail string `json:"attempted_email,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// AccessAttemptDetails holds details for rejected access_attempt actions.
type AccessAttemptDetails struct {
	Reason      string `json:"reason"`
	TokenPrefix string `json:"token_prefix,omitempty"`
	Path        string `json:"path,omitempty"`
}

// PasswordDetails holds details for password_change and password_reset actions.
type PasswordDetails struct {
	TargetUserID int64  `json:"target_user_id"`
	TargetEmail  string `json:"target_email"`
}

// =============================================================================
// Detail Structs — User Management
// =============================================================================

// UserCreationDetails holds details for user_creation actions.
type UserCreationDetails struct {
	CreatedUserID int64  `json:"created_user_id"`
	CreatedEmail  string `json:"created_email"`
	Role          string `json:"role"`
}

// UserUpdateDetails holds details for user_update actions.
type UserUpdateDetails struct {
	TargetUserID  int64    `json:"target_user_id"`
	TargetEmail   string   `json:"target_email"`
	FieldsChanged []string `json:"fields_changed"`
}

// =============================================================================
// Detail Structs — Papers
// =============================================================================

// PaperDetails holds details for paper upload/view/update/delete actions.
type PaperDetails struct {
	PaperID         int64  `json:"paper_id"`
	Title           string `json:"title,omitempty"`
	Confidentiality string `json:"confidentiality,omitempty"`
	FileSize        int64  `json:"file_size,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// ListViewDetails holds details for papers_list_view actions.
type ListViewDetails struct {
	ResultCount int    `json:"result_count"`
	Search      string `json:"search,omitempty"`
	Page        int    `json:"page,omitempty"`
}

// =============================================================================
// Detail Structs — Grants
// =============================================================================

// GrantDetails holds details for paper_assignment and paper_access_revoked actions.
type GrantDetails struct {
	GrantID      int64  `json:"grant_id,omitempty"`
	PaperID      int64  `json:"paper_id"`
	TargetUserID int64  `json:"target_user_id"`
	TargetEmail  string `json:"target_email,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// =============================================================================
// Validation
// =============================================================================

// IsValidAction checks if an action type is valid.
func IsValidAction(action string) bool {
	for _, valid := range constants.AllAuditActions {
		if action == valid {
			return true
		}
	}
	return false
}

// IsValidStatus checks if a status value is valid.
func IsValidStatus(status string) bool {
	return status == constants.AuditStatusSuccess ||
		status == constants.AuditStatusFailed ||
		status == constants.AuditStatusBlocked
}
