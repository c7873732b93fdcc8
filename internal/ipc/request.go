package ipc

import (
	"fmt"
	"unicode/utf16"

	"github.com/rweijnen/everything-mcp/internal/errors"
)

// SearchRequest describes one query to the engine.
type SearchRequest struct {
	// Query is the search expression in Everything syntax.
	Query string

	// Flags selects matching behaviors (case, whole word, regex, ...).
	Flags SearchFlags

	// Offset is the index of the first result to return.
	Offset uint32

	// MaxResults caps the returned page size.
	MaxResults uint32

	// Sort selects the result ordering. Zero leaves the engine default.
	Sort SortType

	// Request selects metadata fields. Zero selects the basic layout.
	Request RequestFlags
}

// Extended reports whether the request uses the extended wire layout.
func (r *SearchRequest) Extended() bool {
	return r.Request != 0
}

// Validate rejects requests that violate protocol limits. It must pass
// before the request is queued so oversized queries never reach the wire.
func (r *SearchRequest) Validate() error {
	units := len(utf16.Encode([]rune(r.Query)))
	if units > MaxQueryLength {
		return errors.New(errors.ErrCodeQueryTooLarge,
			fmt.Sprintf("query is %d UTF-16 units, maximum is %d", units, MaxQueryLength), nil)
	}
	return nil
}
