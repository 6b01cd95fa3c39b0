package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error types for different domains
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "VALIDATION_ERROR"
	ErrorTypeConfiguration   ErrorType = "CONFIGURATION_ERROR"
	ErrorTypeDocumentMissing ErrorType = "DOCUMENT_MISSING"
	ErrorTypeUpload          ErrorType = "UPLOAD_ERROR"
	ErrorTypeCommit          ErrorType = "COMMIT_ERROR"
	ErrorTypeConflict        ErrorType = "CONFLICT_ERROR"
	ErrorTypeAuthentication  ErrorType = "AUTHENTICATION_ERROR"
	ErrorTypeNotFound        ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeInfrastructure  ErrorType = "INFRASTRUCTURE_ERROR"
	ErrorTypeInternal        ErrorType = "INTERNAL_ERROR"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
)

// Content-specific errors
var (
	ErrDocumentMissing      = errors.New("document missing")
	ErrStoreNotConfigured   = errors.New("content store not configured")
	ErrUploadFailed         = errors.New("upload failed")
	ErrCommitInProgress     = errors.New("commit already in progress")
	ErrNothingStaged        = errors.New("nothing staged")
	ErrInvalidPath          = errors.New("invalid content path")
	ErrPublishRuleViolation = errors.New("publish rule violation")
	ErrSessionNotFound      = errors.New("edit session not found")
)

// AppError represents a custom application error with context
type AppError struct {
	Type      ErrorType              `json:"type"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	HTTPCode  int                    `json:"-"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Component string                 `json:"component,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string, httpCode int) *AppError {
	return &AppError{
		Type:     errorType,
		Message:  message,
		HTTPCode: httpCode,
		Details:  make(map[string]interface{}),
	}
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithCause adds the underlying cause
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithComponent adds the component name
func (e *AppError) WithComponent(component string) *AppError {
	e.Component = component
	return e
}

// WithDetail adds a detail field
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrorTypeValidation, message, http.StatusBadRequest)
}

// NewConfigurationError reports a backing service that is unreachable or not configured.
func NewConfigurationError(message string) *AppError {
	return NewAppError(ErrorTypeConfiguration, message, http.StatusServiceUnavailable).WithCause(ErrStoreNotConfigured)
}

// NewDocumentMissingError reports a confirmed-absent remote document.
func NewDocumentMissingError(path string) *AppError {
	return NewAppError(ErrorTypeDocumentMissing, fmt.Sprintf("no document at %s", path), http.StatusNotFound).
		WithCause(ErrDocumentMissing).
		WithDetail("path", path)
}

// NewUploadError reports a single failed asset upload.
func NewUploadError(slot string, cause error) *AppError {
	return NewAppError(ErrorTypeUpload, fmt.Sprintf("upload for %s failed", slot), http.StatusBadGateway).
		WithCause(cause).
		WithDetail("slot", slot)
}

// NewCommitError reports a failed whole-document write.
func NewCommitError(message string) *AppError {
	return NewAppError(ErrorTypeCommit, message, http.StatusBadGateway)
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *AppError {
	return NewAppError(ErrorTypeConflict, message, http.StatusConflict)
}

// NewAuthenticationError creates an authentication error
func NewAuthenticationError(message string) *AppError {
	return NewAppError(ErrorTypeAuthentication, message, http.StatusUnauthorized)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// NewInfrastructureError creates an infrastructure error
func NewInfrastructureError(message string) *AppError {
	return NewAppError(ErrorTypeInfrastructure, message, http.StatusInternalServerError)
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, message, http.StatusInternalServerError)
}

// WrapError wraps an error with context
func WrapError(err error, message string) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// AsAppError extracts the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HTTPStatus returns the HTTP status carried by err, or 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.HTTPCode != 0 {
		return appErr.HTTPCode
	}
	return http.StatusInternalServerError
}

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// IsDocumentMissing checks if an error reports a missing document
func IsDocumentMissing(err error) bool {
	return isType(err, ErrorTypeDocumentMissing) || errors.Is(err, ErrDocumentMissing)
}

// IsConfiguration checks if an error is a configuration error
func IsConfiguration(err error) bool {
	return isType(err, ErrorTypeConfiguration) || errors.Is(err, ErrStoreNotConfigured)
}

// IsUpload checks if an error is an upload error
func IsUpload(err error) bool {
	return isType(err, ErrorTypeUpload) || errors.Is(err, ErrUploadFailed)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrorTypeNotFound) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrSessionNotFound)
}

// IsAuthentication checks if an error is an authentication error
func IsAuthentication(err error) bool {
	return isType(err, ErrorTypeAuthentication) || errors.Is(err, ErrUnauthorized)
}
