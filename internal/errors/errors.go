package errors

import (
	"fmt"
)

// IPCError is the structured error type for everything-mcp.
// It provides rich context for error handling, logging, and user presentation.
type IPCError struct {
	// Code is the unique error code (e.g., "ERR_301_ENGINE_NOT_RUNNING").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IPC, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried by the caller.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *IPCError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *IPCError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with IPCError.
func (e *IPCError) Is(target error) bool {
	if t, ok := target.(*IPCError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *IPCError) WithDetail(key, value string) *IPCError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *IPCError) WithSuggestion(suggestion string) *IPCError {
	e.Suggestion = suggestion
	return e
}

// New creates a new IPCError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *IPCError {
	return &IPCError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an IPCError from an existing error.
// The error's message becomes the IPCError message.
func Wrap(code string, err error) *IPCError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinel instances of the core taxonomy. Matching is by code, so these
// work with errors.Is against any error created via New with the same code.
var (
	// ErrEngineNotRunning indicates the locator found no (or a stale) engine window.
	ErrEngineNotRunning = New(ErrCodeEngineNotRunning, "Everything engine is not running", nil)

	// ErrSendFailed indicates the window-message send primitive reported failure.
	ErrSendFailed = New(ErrCodeSendFailed, "failed to send IPC request", nil)

	// ErrTimeout indicates the caller deadline elapsed with no reply.
	ErrTimeout = New(ErrCodeRequestTimeout, "IPC request timed out", nil)

	// ErrShuttingDown indicates disposal is in progress or complete.
	ErrShuttingDown = New(ErrCodeShuttingDown, "dispatcher is shutting down", nil)

	// ErrQueryTooLarge indicates the query exceeds the protocol ceiling.
	ErrQueryTooLarge = New(ErrCodeQueryTooLarge, "query exceeds maximum length", nil)

	// ErrQueryEmpty indicates an empty or whitespace-only query.
	ErrQueryEmpty = New(ErrCodeQueryEmpty, "query is empty", nil)

	// ErrMalformedReply indicates a reply buffer failed structural validation.
	ErrMalformedReply = New(ErrCodeMalformedReply, "malformed reply from engine", nil)

	// ErrIPCUnsupported indicates the host platform has no window-message IPC.
	ErrIPCUnsupported = New(ErrCodeIPCUnsupported, "window-message IPC is only available on Windows", nil)
)

// EngineNotRunning creates an engine-discovery error with extra context.
func EngineNotRunning(message string) *IPCError {
	return New(ErrCodeEngineNotRunning, message, nil).
		WithSuggestion("Start Everything and make sure its IPC window is enabled.")
}

// SendFailed creates a send-primitive error.
func SendFailed(message string, cause error) *IPCError {
	return New(ErrCodeSendFailed, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *IPCError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *IPCError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is an IPCError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if ie, ok := err.(*IPCError); ok {
		return ie.Retryable
	}
	return false
}

// GetCode extracts the error code from an IPCError.
// Returns empty string if not an IPCError.
func GetCode(err error) string {
	if ie, ok := err.(*IPCError); ok {
		return ie.Code
	}
	return ""
}

// GetCategory extracts the category from an IPCError.
// Returns empty string if not an IPCError.
func GetCategory(err error) Category {
	if ie, ok := err.(*IPCError); ok {
		return ie.Category
	}
	return ""
}
