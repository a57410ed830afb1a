package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeConflict    ErrorType = "conflict"
	ErrorTypeInternal    ErrorType = "internal"
	ErrorTypeUnsupported ErrorType = "unsupported"
)

// LabError represents a structured error in the LIMS
type LabError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *LabError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *LabError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string, details map[string]interface{}) *LabError {
	return &LabError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *LabError {
	return &LabError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(code, message string) *LabError {
	return &LabError{
		Type:    ErrorTypeConflict,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *LabError {
	return &LabError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewUnsupportedEntityError creates an error for archive entity types the
// restore path does not implement. Callers must receive this as a hard
// rejection, never a silent no-op.
func NewUnsupportedEntityError(entityType string) *LabError {
	return &LabError{
		Type:    ErrorTypeUnsupported,
		Code:    ErrCodeUnsupportedEntity,
		Message: fmt.Sprintf("restore is not supported for entity type %q", entityType),
		Details: map[string]interface{}{"entity_type": entityType},
	}
}

// NewSerializationError creates an error for snapshot build failures
func NewSerializationError(message string, cause error) *LabError {
	return &LabError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeSerializationFailed,
		Message: message,
		Cause:   cause,
	}
}

// IsErrorType reports whether err is a LabError of the given type
func IsErrorType(err error, t ErrorType) bool {
	var labErr *LabError
	if errors.As(err, &labErr) {
		return labErr.Type == t
	}
	return false
}

// HTTPStatus maps an error to the response status handlers should use.
// Unknown errors are treated as internal.
func HTTPStatus(err error) int {
	var labErr *LabError
	if !errors.As(err, &labErr) {
		return http.StatusInternalServerError
	}
	switch labErr.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeUnsupported:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrCodeInvalidInput         = "INVALID_INPUT"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeConflict             = "CONFLICT"
	ErrCodeInternalError        = "INTERNAL_ERROR"
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeUnsupportedEntity    = "UNSUPPORTED_ENTITY_TYPE"
	ErrCodeSerializationFailed  = "SERIALIZATION_FAILED"
	ErrCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
)
