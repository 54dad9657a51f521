package services

import (
	"errors"
	"fmt"

	"papervault/internal/constants"
)

// ServiceError represents a service-level error with an error code
type ServiceError struct {
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new service error
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}

// WrapServiceError wraps an existing error with a service error
func WrapServiceError(code, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, Err: err}
}

// IsServiceError checks if an error is a ServiceError and returns its code
func IsServiceError(err error) (string, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code, true
	}
	return "", false
}

// Pre-defined service errors for common cases
var (
	// Auth errors
	ErrAuthRequired           = NewServiceError(constants.ErrCodeAuthRequired, "authentication required")
	ErrAuthInvalidCredentials = NewServiceError(constants.ErrCodeAuthInvalidCredentials, "invalid credentials")
	ErrAuthForbidden          = NewServiceError(constants.ErrCodeAuthForbidden, "access denied")
	ErrAuthUserNotFound       = NewServiceError(constants.ErrCodeAuthUserNotFound, "user not found")
	ErrAuthUserExists         = NewServiceError(constants.ErrCodeAuthUserExists, "email already registered")
	ErrAuthUserDisabled       = NewServiceError(constants.ErrCodeAuthUserDisabled, "user account is disabled")
	ErrAuthPasswordTooWeak    = NewServiceError(constants.ErrCodeAuthPasswordTooWeak, "password does not meet requirements")
	ErrAuthInvalidRole        = NewServiceError(constants.ErrCodeAuthInvalidRole, "invalid role")
	ErrAuthSelfDemotion       = NewServiceError(constants.ErrCodeAuthSelfDemotion, "cannot change or deactivate your own admin account")
	ErrGrantExists            = NewServiceError(constants.ErrCodeAuthGrantExists, "user already has an active grant for this paper")
	ErrGrantNotFound          = NewServiceError(constants.ErrCodeAuthGrantNotFound, "no active grant found")

	// Paper errors
	ErrPaperNotFound    = NewServiceError(constants.ErrCodePaperNotFound, "paper not found")
	ErrPaperFileMissing = NewServiceError(constants.ErrCodePaperFileMissing, "paper file missing from storage")
	ErrFileTooLarge     = NewServiceError(constants.ErrCodeFileTooLarge, "file exceeds maximum upload size")
	ErrInvalidFileType  = NewServiceError(constants.ErrCodeInvalidFileType, "only PDF files are accepted")
	ErrMissingFile      = NewServiceError(constants.ErrCodeMissingFile, "no file provided")

	// Request errors
	ErrMissingParam = NewServiceError(constants.ErrCodeMissingParam, "required parameter missing")

	// Internal errors
	ErrInternal = NewServiceError(constants.ErrCodeInternalError, "internal server error")
)

// Errors with context

func ErrPaperNotFoundWithID(id int64) *ServiceError {
	return &ServiceError{
		Code:    constants.ErrCodePaperNotFound,
		Message: fmt.Sprintf("paper not found: %d", id),
	}
}

func ErrMissingParamWithName(name string) *ServiceError {
	return &ServiceError{
		Code:    constants.ErrCodeMissingParam,
		Message: fmt.Sprintf("required parameter missing: %s", name),
	}
}

func ErrValidation(message string) *ServiceError {
	return &ServiceError{
		Code:    constants.ErrCodeValidationError,
		Message: message,
	}
}

// Wrap internal errors
func WrapInternalError(err error) *ServiceError {
	return WrapServiceError(constants.ErrCodeInternalError, "internal error", err)
}

func WrapStorageError(err error) *ServiceError {
	return WrapServiceError(constants.ErrCodeStorageError, "blob storage operation failed", err)
}
