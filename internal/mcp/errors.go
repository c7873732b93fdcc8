package mcp

import (
	stderrors "errors"
	"fmt"

	"github.com/rweijnen/everything-mcp/internal/errors"
)

// Custom MCP error codes for everything-mcp.
const (
	// ErrCodeEngineNotRunning indicates the Everything engine was not found.
	ErrCodeEngineNotRunning = -32001

	// ErrCodeSendFailed indicates the IPC send primitive failed.
	ErrCodeSendFailed = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeShuttingDown indicates the server is disposing.
	ErrCodeShuttingDown = -32004

	// Standard JSON-RPC error codes.
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError creates an invalid-parameters error.
func NewInvalidParamsError(message string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: message}
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var ipcErr *errors.IPCError
	if stderrors.As(err, &ipcErr) {
		return mapIPCError(ipcErr)
	}

	var mcpErr *MCPError
	if stderrors.As(err, &mcpErr) {
		return mcpErr
	}

	return &MCPError{Code: ErrCodeInternalError, Message: err.Error()}
}

func mapIPCError(e *errors.IPCError) *MCPError {
	msg := e.Message
	if e.Suggestion != "" {
		msg += " " + e.Suggestion
	}

	switch e.Code {
	case errors.ErrCodeEngineNotRunning:
		return &MCPError{Code: ErrCodeEngineNotRunning, Message: msg}
	case errors.ErrCodeSendFailed:
		return &MCPError{Code: ErrCodeSendFailed, Message: msg}
	case errors.ErrCodeRequestTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: msg}
	case errors.ErrCodeShuttingDown:
		return &MCPError{Code: ErrCodeShuttingDown, Message: msg}
	case errors.ErrCodeQueryTooLarge, errors.ErrCodeQueryEmpty, errors.ErrCodeInvalidInput:
		return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: msg}
	}
}
