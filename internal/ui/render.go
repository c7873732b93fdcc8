// Package ui renders search results and engine status for the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/rweijnen/everything-mcp/internal/client"
	"github.com/rweijnen/everything-mcp/internal/ipc"
)

// Renderer writes human-oriented output. It is not safe for concurrent use.
type Renderer struct {
	w      io.Writer
	styles Styles
}

// NewRenderer builds a renderer for w. Color is disabled automatically when
// w is not a terminal or NO_COLOR is set.
func NewRenderer(w io.Writer, noColor bool) *Renderer {
	if !noColor {
		noColor = DetectNoColor() || !IsTTY(w)
	}
	return &Renderer{w: w, styles: GetStyles(noColor)}
}

// Results renders one result page as an aligned listing with an item count
// footer.
func (r *Renderer) Results(page *ipc.ReplyPage) {
	s := r.styles

	for _, rec := range page.Records {
		name := s.FileName.Render(rec.Name)
		if rec.IsFolder {
			name = s.Folder.Render(rec.Name + `\`)
		}
		line := fmt.Sprintf("%s  %s", name, s.Path.Render(rec.Path))

		if meta := formatMeta(rec); meta != "" {
			line += "  " + s.Meta.Render(meta)
		}
		fmt.Fprintln(r.w, line)
	}

	footer := fmt.Sprintf("%d of %d items", len(page.Records), page.TotalItems)
	if page.Malformed > 0 {
		footer += s.Warning.Render(fmt.Sprintf("  (%d degraded)", page.Malformed))
	}
	fmt.Fprintln(r.w, s.Dim.Render(footer))
}

// Status renders an engine status panel.
func (r *Renderer) Status(st *client.EngineStatus) {
	s := r.styles

	var b strings.Builder
	b.WriteString(s.Header.Render("Everything engine") + "\n")
	b.WriteString(fmt.Sprintf("%s %s\n", s.Label.Render("Version:"), st.Version))
	b.WriteString(fmt.Sprintf("%s %s\n", s.Label.Render("Machine:"), st.TargetMachine))
	b.WriteString(fmt.Sprintf("%s %s\n", s.Label.Render("Database:"), r.dbState(st)))
	admin := "no"
	if st.IsAdmin {
		admin = "yes"
	}
	b.WriteString(fmt.Sprintf("%s %s", s.Label.Render("Admin:"), admin))

	fmt.Fprintln(r.w, s.Panel.Render(b.String()))
}

// Error renders an error line.
func (r *Renderer) Error(err error) {
	fmt.Fprintln(r.w, r.styles.Error.Render("error: ")+err.Error())
}

func (r *Renderer) dbState(st *client.EngineStatus) string {
	switch {
	case !st.DBLoaded:
		return r.styles.Warning.Render("not loaded")
	case st.DBBusy:
		return r.styles.Warning.Render("busy")
	default:
		return r.styles.Success.Render("loaded")
	}
}

// formatMeta joins whichever optional fields a record carries.
func formatMeta(rec ipc.ResultRecord) string {
	var parts []string
	if rec.Size != nil && !rec.IsFolder {
		parts = append(parts, FormatSize(*rec.Size))
	}
	if rec.DateModified != nil {
		parts = append(parts, rec.DateModified.Local().Format("2006-01-02 15:04"))
	}
	if rec.RunCount != nil && *rec.RunCount > 0 {
		parts = append(parts, fmt.Sprintf("runs:%d", *rec.RunCount))
	}
	return strings.Join(parts, "  ")
}

// FormatSize renders a byte count with a binary unit suffix.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// FormatDuration renders a duration rounded for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}
