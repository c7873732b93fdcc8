package mcp

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rweijnen/everything-mcp/internal/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"nil", nil, 0},
		{"engine not running", errors.EngineNotRunning("gone"), ErrCodeEngineNotRunning},
		{"send failed", errors.SendFailed("hung", nil), ErrCodeSendFailed},
		{"timeout", errors.New(errors.ErrCodeRequestTimeout, "slow", nil), ErrCodeTimeout},
		{"shutting down", errors.ErrShuttingDown, ErrCodeShuttingDown},
		{"query too large", errors.ErrQueryTooLarge, ErrCodeInvalidParams},
		{"query empty", errors.ErrQueryEmpty, ErrCodeInvalidParams},
		{"malformed reply", errors.ErrMalformedReply, ErrCodeInternalError},
		{"plain error", stderrors.New("boom"), ErrCodeInternalError},
		{"already mcp", NewInvalidParamsError("bad"), ErrCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if tt.err == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestMapError_WrappedChain(t *testing.T) {
	inner := errors.EngineNotRunning("no window")
	wrapped := fmt.Errorf("search failed: %w", inner)

	got := MapError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, ErrCodeEngineNotRunning, got.Code)
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	err := errors.EngineNotRunning("no window")
	got := MapError(err)
	assert.Contains(t, got.Message, "Start Everything")
}
