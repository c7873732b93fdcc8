package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSearchResults_Empty(t *testing.T) {
	out := FormatSearchResults("nothing", SearchOutput{})
	assert.Contains(t, out, `No results found for "nothing"`)
}

func TestFormatSearchResults(t *testing.T) {
	size := int64(1 << 20)
	mod := "2025-03-01T10:00:00Z"
	runs := uint32(2)
	out := FormatSearchResults("notes", SearchOutput{
		TotalItems: 42,
		Results: []SearchResultOutput{
			{FullPath: `C:\docs\notes.txt`, Size: &size, DateModified: &mod, RunCount: &runs},
			{FullPath: `C:\docs`, IsFolder: true},
		},
	})

	assert.Contains(t, out, `Results for "notes"`)
	assert.Contains(t, out, "Showing 2 of 42 matches")
	assert.Contains(t, out, `C:\docs\notes.txt`)
	assert.Contains(t, out, "1.0 MiB")
	assert.Contains(t, out, "modified 2025-03-01T10:00:00Z")
	assert.Contains(t, out, "2 runs")
	assert.Contains(t, out, "(folder)")
	assert.NotContains(t, out, "partial fields")
}

func TestFormatSearchResults_Degraded(t *testing.T) {
	out := FormatSearchResults("q", SearchOutput{
		TotalItems: 1,
		Degraded:   1,
		Results:    []SearchResultOutput{{FullPath: `C:\x`}},
	})
	assert.Contains(t, out, "1 result(s) had unreadable metadata")
}

func TestFormatEngineStatus(t *testing.T) {
	out := FormatEngineStatus(EngineStatusOutput{
		Version:       "1.4.1.1024",
		TargetMachine: "x64",
		DBLoaded:      true,
		DBBusy:        true,
		IsAdmin:       false,
	})
	assert.Contains(t, out, "1.4.1.1024")
	assert.Contains(t, out, "x64")
	assert.Contains(t, out, "busy")
	assert.Contains(t, out, "Elevated: false")

	out = FormatEngineStatus(EngineStatusOutput{DBLoaded: false})
	assert.Contains(t, out, "not loaded")
}
