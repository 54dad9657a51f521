package constants

// API Error Codes
const (
	ErrCodePaperNotFound    = "PAPER_NOT_FOUND"
	ErrCodePaperFileMissing = "PAPER_FILE_MISSING"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeValidationError  = "VALIDATION_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeMissingParam     = "MISSING_PARAM"
	ErrCodeNotFound         = "NOT_FOUND"

	// Uploads
	ErrCodeFileTooLarge    = "FILE_TOO_LARGE"
	ErrCodeInvalidFileType = "INVALID_FILE_TYPE"
	ErrCodeMissingFile     = "MISSING_FILE"
	ErrCodeStorageError    = "STORAGE_ERROR"

	// Audit Log
	ErrCodeAuditLogError      = "AUDIT_LOG_ERROR"
	ErrCodeAuditInvalidAction = "AUDIT_INVALID_ACTION"

	// Filename Sanitization
	ErrCodeInvalidFilename = "INVALID_FILENAME"
)
