package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Authentication errors (AUTH-001 to AUTH-099)
	ErrCodeAuthExpired   ErrorCode = "AUTH-001"
	ErrCodeAuthInvalid   ErrorCode = "AUTH-002"
	ErrCodeAuthRequired  ErrorCode = "AUTH-003"
	ErrCodeAuthForbidden ErrorCode = "AUTH-004"

	// Client-side validation errors (VALIDATION-001 to VALIDATION-099)
	ErrCodeValidation ErrorCode = "VALIDATION-001"

	// Remote API errors (REMOTE-001 to REMOTE-099)
	ErrCodeRemote   ErrorCode = "REMOTE-001"
	ErrCodeNotFound ErrorCode = "REMOTE-002"
	ErrCodeDecode   ErrorCode = "REMOTE-003"

	// Reorder errors (REORDER-001 to REORDER-099)
	ErrCodeReorderConflict ErrorCode = "REORDER-001"
	ErrCodeReorderBusy     ErrorCode = "REORDER-002"
	ErrCodeReorderIndex    ErrorCode = "REORDER-003"

	// Network errors (NET-001 to NET-099)
	ErrCodeNetwork ErrorCode = "NET-001"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid ErrorCode = "CONFIG-001"
	ErrCodeConfigMissing ErrorCode = "CONFIG-002"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound    ErrorCode = "IO-001"
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
)

// AdminError is an error with a stable code, recovery suggestions and an optional docs link.
type AdminError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *AdminError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *AdminError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AdminError carrying the same code.
// This lets callers write errors.Is(err, errors.New(ErrCodeAuthExpired, "")).
func (e *AdminError) Is(target error) bool {
	var t *AdminError
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates a new AdminError
func New(code ErrorCode, message string) *AdminError {
	return &AdminError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AdminError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *AdminError {
	return &AdminError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *AdminError) WithSuggestion(suggestion string) *AdminError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *AdminError) WithSuggestions(suggestions ...string) *AdminError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *AdminError) WithDocs(url string) *AdminError {
	e.DocsURL = url
	return e
}

// CodeOf returns the code of the first AdminError in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var adminErr *AdminError
	if stderrors.As(err, &adminErr) {
		return adminErr.Code
	}
	return ""
}

// HasCode reports whether err's chain contains an AdminError with the given code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var adminErr *AdminError
		if !stderrors.As(err, &adminErr) {
			return false
		}
		if adminErr.Code == code {
			return true
		}
		err = adminErr.Cause
	}
	return false
}

// messager is implemented by errors that carry a server-supplied, user-facing message.
type messager interface {
	UserMessage() string
}

// UserMessage returns the message a user should see for err: the remote
// response's message field when one exists anywhere in the chain, else fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var m messager
	if stderrors.As(err, &m) {
		if msg := m.UserMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}

// Common error constructors for frequently used errors

// NewAuthExpiredError creates the error returned after an unrecoverable 401
func NewAuthExpiredError(cause error) *AdminError {
	return Wrap(ErrCodeAuthExpired, "session expired", cause).
		WithSuggestion("Run 'twcadmin auth login' to sign in again")
}

// NewAuthInvalidError creates a failed-login error carrying the user-facing message
func NewAuthInvalidError(message string, cause error) *AdminError {
	return Wrap(ErrCodeAuthInvalid, message, cause).
		WithSuggestion("Check your username and password").
		WithSuggestion("Application passwords are not accepted by the token endpoint")
}

// NewAuthRequiredError creates the error used when a protected command runs without a session
func NewAuthRequiredError(location string) *AdminError {
	return New(ErrCodeAuthRequired, fmt.Sprintf("sign in required for: %s", location)).
		WithSuggestion("Run 'twcadmin auth login'; you will be pointed back here afterwards")
}

// NewForbiddenError creates the error used when an authenticated user lacks a role or capability
func NewForbiddenError(location, requirement string) *AdminError {
	return New(ErrCodeAuthForbidden, fmt.Sprintf("%s is not available to your account (requires %s)", location, requirement)).
		WithSuggestion("Ask an administrator to grant the missing role or capability").
		WithSuggestion("Run 'twcadmin auth whoami' to list your roles and capabilities")
}

// NewRemoteError creates an error for a failed API call using the response message when present
func NewRemoteError(fallback string, cause error) *AdminError {
	return Wrap(ErrCodeRemote, UserMessage(cause, fallback), cause)
}

// NewReorderConflictError creates the error reported after a failed batch reorder
func NewReorderConflictError(collection string, cause error) *AdminError {
	return Wrap(ErrCodeReorderConflict, fmt.Sprintf("failed to update %s order", collection), cause).
		WithSuggestion("The list was reloaded from the server; repeat the move if it is still needed")
}

// NewReorderBusyError creates the error returned when a reorder is already being committed
func NewReorderBusyError(collection string) *AdminError {
	return New(ErrCodeReorderBusy, fmt.Sprintf("a %s reorder is still being saved", collection)).
		WithSuggestion("Wait for the current save to finish")
}

// NewNetworkError creates a transport-level failure error
func NewNetworkError(target string, cause error) *AdminError {
	return Wrap(ErrCodeNetwork, fmt.Sprintf("request to %s failed", target), cause).
		WithSuggestion("Check the api.base_url setting and your network connection").
		WithSuggestion("Run 'twcadmin config view' to see the configured endpoint")
}

// NewConfigMissingError creates an error for a required configuration key that is unset
func NewConfigMissingError(key string) *AdminError {
	return New(ErrCodeConfigMissing, fmt.Sprintf("configuration value %q is not set", key)).
		WithSuggestion(fmt.Sprintf("Run 'twcadmin config set %s <value>'", key)).
		WithSuggestion("Or export the matching TWC_* environment variable")
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string) *AdminError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Verify the file exists and you have read permissions")
}
