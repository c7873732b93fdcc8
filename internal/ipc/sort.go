package ipc

import (
	"strings"

	"github.com/rweijnen/everything-mcp/internal/errors"
)

// sortNames maps user-facing sort names to engine sort values, ascending and
// descending.
var sortNames = map[string][2]SortType{
	"name":          {SortNameAscending, SortNameDescending},
	"path":          {SortPathAscending, SortPathDescending},
	"size":          {SortSizeAscending, SortSizeDescending},
	"extension":     {SortExtensionAscending, SortExtensionDescending},
	"date_created":  {SortDateCreatedAscending, SortDateCreatedDescending},
	"date_modified": {SortDateModifiedAscending, SortDateModifiedDescending},
	"run_count":     {SortRunCountAscending, SortRunCountDescending},
}

// ParseSort resolves a sort name like "size" or "-date_modified" (leading
// "-" for descending) to the engine sort value. Empty input keeps the
// engine's default ordering.
func ParseSort(s string) (SortType, error) {
	if s == "" {
		return 0, nil
	}
	desc := strings.HasPrefix(s, "-")
	pair, ok := sortNames[strings.TrimPrefix(s, "-")]
	if !ok {
		return 0, errors.ValidationError("unknown sort order: "+s, nil)
	}
	if desc {
		return pair[1], nil
	}
	return pair[0], nil
}
