// Package errors provides structured error handling for the intake service
// Every failure surfaced to a caller carries a stable code and a localized message
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a machine-readable error kind
type ErrorCode string

// Error codes surfaced to API callers
const (
	// Client errors (4xx)
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	CodeForbidden        ErrorCode = "FORBIDDEN"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeQuotaExceeded    ErrorCode = "QUOTA_EXCEEDED"
	CodeStageExpired     ErrorCode = "STAGE_EXPIRED"

	// Upstream errors
	CodeUpstreamRateLimited ErrorCode = "UPSTREAM_RATE_LIMITED"
	CodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	CodeMalformedOutput     ErrorCode = "MALFORMED_OUTPUT"

	// Server errors (5xx)
	CodeStorageFault ErrorCode = "STORAGE_FAULT"
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application error with structured information
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the appropriate HTTP status code
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeValidationFailed:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeStageExpired:
		return http.StatusGone
	case CodeQuotaExceeded, CodeUpstreamRateLimited:
		return http.StatusTooManyRequests
	case CodeMalformedOutput:
		return http.StatusUnprocessableEntity
	case CodeUpstreamUnavailable, CodeStorageFault:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Transient reports whether a caller may reasonably retry or switch to a fallback path
func (e *AppError) Transient() bool {
	return e.Code == CodeUpstreamRateLimited || e.Code == CodeUpstreamUnavailable
}

// Localize returns the human-readable message in the given language, falling back to English
func (e *AppError) Localize(lang string) string {
	if msgs, ok := catalog[e.Code]; ok {
		if msg, ok := msgs[normalizeLang(lang)]; ok {
			return msg
		}
	}
	return e.Message
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    details,
		StackTrace: getStackTrace(),
	}
}

// NewValidationError creates a validation error
func NewValidationError(details string) *AppError {
	return NewAppError(CodeValidationFailed, "Validation failed", details)
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "Authentication required"
	}
	return NewAppError(CodeUnauthorized, message, "")
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = "Access forbidden"
	}
	return NewAppError(CodeForbidden, message, "")
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	message := "Resource not found"
	if resource != "" {
		message = fmt.Sprintf("%s not found", resource)
	}
	return NewAppError(CodeNotFound, message, "")
}

// NewQuotaExceededError creates a quota exceeded error
func NewQuotaExceededError(tier string, limit int) *AppError {
	return NewAppError(
		CodeQuotaExceeded,
		"Quota exceeded",
		fmt.Sprintf("daily %s quota of %d imports reached", tier, limit),
	).WithMetadata("tier", tier).WithMetadata("limit", limit).WithMetadata("remaining", 0)
}

// NewStageExpiredError creates an error for an unknown or expired export handle
func NewStageExpiredError(handle string) *AppError {
	return NewAppError(
		CodeStageExpired,
		"Shopping list expired",
		"the staged shopping list is no longer available",
	).WithMetadata("handle", handle)
}

// NewRateLimitedError creates an error for an upstream 429
func NewRateLimitedError(service string, cause error) *AppError {
	return NewAppError(
		CodeUpstreamRateLimited,
		"Upstream rate limited",
		fmt.Sprintf("%s is rate limiting requests", service),
	).WithMetadata("service", service).WithCause(cause)
}

// NewUnavailableError creates an error for an upstream 5xx or network fault
func NewUnavailableError(service string, cause error) *AppError {
	return NewAppError(
		CodeUpstreamUnavailable,
		"Upstream unavailable",
		fmt.Sprintf("failed to communicate with %s", service),
	).WithMetadata("service", service).WithCause(cause)
}

// NewMalformedOutputError creates an error for model output that is not a recipe
func NewMalformedOutputError(cause error) *AppError {
	return NewAppError(
		CodeMalformedOutput,
		"Not a valid recipe",
		"model response could not be parsed",
	).WithCause(cause)
}

// NewStorageFaultError creates a storage error
func NewStorageFaultError(operation string, cause error) *AppError {
	return NewAppError(
		CodeStorageFault,
		"Storage operation failed",
		fmt.Sprintf("failed to %s", operation),
	).WithCause(cause)
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return NewAppError(CodeInternal, message, "")
}

// Utility functions

// Wrap wraps an error as an internal error if it's not already an AppError
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	return NewInternalError(message).WithCause(err)
}

// As extracts the AppError from an error chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is checks if an error is of a specific error code
func Is(err error, code ErrorCode) bool {
	if appErr, ok := As(err); ok {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// getStackTrace captures the current stack trace
func getStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "pkg/errors") {
			builder.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return builder.String()
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value"`
	Tag     string      `json:"tag"`
	Message string      `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	if len(v) == 1 {
		return v[0].Message
	}

	var messages []string
	for _, err := range v {
		messages = append(messages, err.Message)
	}

	return strings.Join(messages, "; ")
}

// NewValidationErrors creates validation errors from validator errors
func NewValidationErrors(errors []ValidationError) *AppError {
	validationErrs := ValidationErrors(errors)

	return NewAppError(
		CodeValidationFailed,
		"Validation failed",
		validationErrs.Error(),
	).WithMetadata("validation_errors", validationErrs)
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error ErrorDetails `json:"error"`
}

// ErrorDetails represents the error details in API responses
type ErrorDetails struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// ToErrorResponse converts an AppError to an API error response in the caller's language
func ToErrorResponse(err *AppError, requestID, lang string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetails{
			Code:      err.Code,
			Message:   err.Localize(lang),
			Details:   err.Details,
			Metadata:  err.Metadata,
			RequestID: requestID,
			Timestamp: fmt.Sprintf("%d", time.Now().Unix()),
		},
	}
}
