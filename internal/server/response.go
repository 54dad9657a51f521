package server

import (
	"encoding/json"
	"net/http"

	"papervault/internal/constants"
	"papervault/internal/services"
)

// FieldError describes a validation failure for one request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError represents a standard error response
type APIError struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Code    string       `json:"code"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error response
func WriteError(w http.ResponseWriter, status int, message string, code string) {
	WriteJSON(w, status, APIError{
		Success: false,
		Message: message,
		Code:    code,
	})
}

// WriteFieldErrors writes a validation error response carrying per-field details.
func WriteFieldErrors(w http.ResponseWriter, message string, fields []FieldError) {
	WriteJSON(w, http.StatusBadRequest, APIError{
		Success: false,
		Message: message,
		Code:    constants.ErrCodeValidationError,
		Errors:  fields,
	})
}

// WriteSuccess writes a success envelope. The payload map is augmented with
// "success": true.
func WriteSuccess(w http.ResponseWriter, payload map[string]interface{}) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["success"] = true
	WriteJSON(w, http.StatusOK, payload)
}

// handleServiceError maps service errors to HTTP responses.
// It extracts the error code from ServiceError and maps it to the appropriate HTTP status.
func (s *Server) handleServiceError(w http.ResponseWriter, err error) {
	code, isServiceErr := services.IsServiceError(err)
	if !isServiceErr {
		message := "internal server error"
		if s.app.Config.DevMode {
			message = err.Error()
		}
		WriteError(w, http.StatusInternalServerError, message, constants.ErrCodeInternalError)
		return
	}

	// Map error codes to HTTP status codes
	status := http.StatusInternalServerError
	switch code {
	case constants.ErrCodeAuthRequired, constants.ErrCodeAuthInvalidCredentials,
		constants.ErrCodeAuthSessionExpired, constants.ErrCodeAuthInvalidToken:
		status = http.StatusUnauthorized
	case constants.ErrCodeAuthForbidden, constants.ErrCodeAuthUserDisabled,
		constants.ErrCodeAuthSelfDemotion:
		status = http.StatusForbidden
	case constants.ErrCodeAuthUserNotFound, constants.ErrCodePaperNotFound,
		constants.ErrCodeAuthGrantNotFound, constants.ErrCodeNotFound:
		status = http.StatusNotFound
	case constants.ErrCodeAuthUserExists, constants.ErrCodeAuthGrantExists:
		status = http.StatusConflict
	case constants.ErrCodeFileTooLarge:
		status = http.StatusRequestEntityTooLarge
	case constants.ErrCodeAuthPasswordTooWeak, constants.ErrCodeAuthInvalidRole,
		constants.ErrCodeInvalidRequest, constants.ErrCodeValidationError,
		constants.ErrCodeMissingParam, constants.ErrCodeInvalidFileType,
		constants.ErrCodeMissingFile, constants.ErrCodeInvalidFilename:
		status = http.StatusBadRequest
	case constants.ErrCodePaperFileMissing, constants.ErrCodeStorageError:
		status = http.StatusInternalServerError
	}

	message := err.Error()
	if status == http.StatusInternalServerError && !s.app.Config.DevMode {
		// Do not leak wrapped internals outside development
		message = "internal server error"
	}

	WriteError(w, status, message, code)
}
