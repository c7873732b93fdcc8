// Package errors provides structured error handling for everything-mcp.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 3XX: IPC errors (engine discovery, send, reply correlation)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIPC indicates errors on the window-message channel to the engine.
	CategoryIPC Category = "IPC"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IPC errors (300-399)
	ErrCodeEngineNotRunning = "ERR_301_ENGINE_NOT_RUNNING"
	ErrCodeSendFailed       = "ERR_302_SEND_FAILED"
	ErrCodeRequestTimeout   = "ERR_303_REQUEST_TIMEOUT"
	ErrCodeShuttingDown     = "ERR_304_SHUTTING_DOWN"
	ErrCodeIPCUnsupported   = "ERR_305_IPC_UNSUPPORTED"

	// Validation errors (400-499)
	ErrCodeQueryTooLarge = "ERR_401_QUERY_TOO_LARGE"
	ErrCodeQueryEmpty    = "ERR_402_QUERY_EMPTY"
	ErrCodeInvalidInput  = "ERR_403_INVALID_INPUT"

	// Internal errors (500-599)
	ErrCodeInternal       = "ERR_501_INTERNAL"
	ErrCodeMalformedReply = "ERR_502_MALFORMED_REPLY"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '3':
		return CategoryIPC
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	if code == ErrCodeIPCUnsupported {
		return SeverityFatal
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// Engine-not-running and send failures are recoverable by re-issuing after
// verifying the engine is up; nothing is retried inside the core itself.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEngineNotRunning, ErrCodeSendFailed:
		return true
	default:
		return false
	}
}
