package mcp

import (
	"fmt"
	"strings"

	"github.com/rweijnen/everything-mcp/internal/ui"
)

// FormatSearchResults renders a result page as markdown for the tool's text
// content. The structured output carries the same data machine-readably.
func FormatSearchResults(query string, out SearchOutput) string {
	if len(out.Results) == 0 {
		return fmt.Sprintf("No results found for %q", query)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Results for %q\n\n", query))
	sb.WriteString(fmt.Sprintf("Showing %d of %d match", len(out.Results), out.TotalItems))
	if out.TotalItems != 1 {
		sb.WriteString("es")
	}
	if out.Offset > 0 {
		sb.WriteString(fmt.Sprintf(" (from offset %d)", out.Offset))
	}
	sb.WriteString("\n\n")

	for _, r := range out.Results {
		formatResult(&sb, r)
	}

	if out.Degraded > 0 {
		sb.WriteString(fmt.Sprintf("\n%d result(s) had unreadable metadata and are shown with partial fields.\n", out.Degraded))
	}
	return sb.String()
}

func formatResult(sb *strings.Builder, r SearchResultOutput) {
	sb.WriteString(fmt.Sprintf("- `%s`", r.FullPath))
	if r.IsFolder {
		sb.WriteString(" (folder)")
	}

	var meta []string
	if r.Size != nil {
		meta = append(meta, ui.FormatSize(*r.Size))
	}
	if r.DateModified != nil {
		meta = append(meta, "modified "+*r.DateModified)
	}
	if r.RunCount != nil && *r.RunCount > 0 {
		meta = append(meta, fmt.Sprintf("%d runs", *r.RunCount))
	}
	if len(meta) > 0 {
		sb.WriteString(": " + strings.Join(meta, ", "))
	}
	sb.WriteString("\n")
}

// FormatEngineStatus renders an engine status snapshot as markdown.
func FormatEngineStatus(st EngineStatusOutput) string {
	var sb strings.Builder
	sb.WriteString("## Everything engine\n\n")
	sb.WriteString(fmt.Sprintf("- Version: %s (%s)\n", st.Version, st.TargetMachine))

	db := "loaded"
	switch {
	case !st.DBLoaded:
		db = "not loaded"
	case st.DBBusy:
		db = "busy (scanning or rebuilding)"
	}
	sb.WriteString(fmt.Sprintf("- Database: %s\n", db))
	sb.WriteString(fmt.Sprintf("- Elevated: %t\n", st.IsAdmin))
	return sb.String()
}
