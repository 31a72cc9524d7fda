package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents different types of errors
type ErrorCode string

const (
	// Client errors
	ErrCodeBadRequest ErrorCode = "BAD_REQUEST"
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"

	// Server errors
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeTimeout  ErrorCode = "TIMEOUT"
	ErrCodeConfig   ErrorCode = "CONFIG_ERROR"

	// Pipeline errors
	ErrCodeRetrievalUnavailable ErrorCode = "RETRIEVAL_UNAVAILABLE"
	ErrCodeRetrievalFailed      ErrorCode = "RETRIEVAL_FAILED"
	ErrCodeInvalidTimestamp     ErrorCode = "INVALID_TIMESTAMP"
	ErrCodeDatabaseError        ErrorCode = "DATABASE_ERROR"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Retryable  bool                   `json:"retryable"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Details != "" {
		msg += " - " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// IsRetryable returns whether the error is retryable
func (e *AppError) IsRetryable() bool {
	return e.Retryable
}

// WithCause returns a copy of the error carrying cause.
func (e *AppError) WithCause(cause error) *AppError {
	c := *e
	c.Cause = cause
	return &c
}

// WithDetails returns a copy of the error carrying details.
func (e *AppError) WithDetails(details string) *AppError {
	c := *e
	c.Details = details
	return &c
}

// WithMetadata returns a copy of the error with key set in its metadata.
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	c := *e
	c.Metadata = make(map[string]interface{}, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		c.Metadata[k] = v
	}
	c.Metadata[key] = value
	return &c
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Timestamp:  time.Now(),
		HTTPStatus: getHTTPStatusForCode(code),
		Retryable:  isRetryableCode(code),
	}
}

func getHTTPStatusForCode(code ErrorCode) int {
	switch code {
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeInvalidTimestamp:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRetrievalUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeRetrievalFailed:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func isRetryableCode(code ErrorCode) bool {
	switch code {
	case ErrCodeTimeout, ErrCodeRetrievalFailed, ErrCodeDatabaseError:
		return true
	default:
		return false
	}
}

// Predefined errors for common scenarios
var (
	ErrInvalidRequest       = NewAppError(ErrCodeBadRequest, "Invalid request")
	ErrInternal             = NewAppError(ErrCodeInternal, "Internal server error")
	ErrRetrievalUnavailable = NewAppError(ErrCodeRetrievalUnavailable, "Quote provider unavailable")
	ErrRetrievalFailed      = NewAppError(ErrCodeRetrievalFailed, "Quote retrieval failed")
	ErrInvalidTimestamp     = NewAppError(ErrCodeInvalidTimestamp, "Timestamp out of range")
	ErrDatabase             = NewAppError(ErrCodeDatabaseError, "Database error")
	ErrConfig               = NewAppError(ErrCodeConfig, "Invalid configuration")
)

// WrapError wraps an existing error with additional context
func WrapError(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	// Preserve the original code if none was given
	if code == "" {
		if appErr := GetAppError(err); appErr != nil {
			code = appErr.Code
		} else {
			code = ErrCodeInternal
		}
	}

	e := NewAppError(code, message)
	e.Cause = err
	return e
}

// IsAppError checks if an error chain contains an AppError
func IsAppError(err error) bool {
	return GetAppError(err) != nil
}

// GetAppError extracts an AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ToErrorResponse converts an AppError to an ErrorResponse
func (e *AppError) ToErrorResponse(requestID string) ErrorResponse {
	details := e.Details
	if details == "" && e.Cause != nil {
		details = e.Cause.Error()
	}
	return ErrorResponse{
		Error:     "error",
		Code:      e.Code,
		Message:   e.Message,
		Details:   details,
		Timestamp: e.Timestamp,
		RequestID: requestID,
		Metadata:  e.Metadata,
	}
}
