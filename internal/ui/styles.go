package ui

import "github.com/charmbracelet/lipgloss"

// Color palette - single lime accent over grays.
const (
	ColorLime     = "154" // Primary accent - bright lime green
	ColorLimeDim  = "106" // Dimmed lime for secondary accents
	ColorWhite    = "255" // Headers, important text
	ColorGray     = "245" // Secondary text, labels
	ColorDarkGray = "238" // Borders, separators
	ColorRed      = "196" // Errors
	ColorYellow   = "220" // Warnings
)

// Styles holds all styles for terminal rendering.
type Styles struct {
	// Text styles
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Label   lipgloss.Style

	// Result styles
	FileName lipgloss.Style
	Folder   lipgloss.Style
	Path     lipgloss.Style
	Meta     lipgloss.Style

	// Panel/layout styles
	Panel lipgloss.Style
}

// DefaultStyles returns styled components for terminal output.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),

		FileName: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWhite)),
		Folder:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLimeDim)),
		Path:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Meta:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorDarkGray)).
			Padding(0, 1),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle(),
		Success:  lipgloss.NewStyle(),
		Warning:  lipgloss.NewStyle(),
		Error:    lipgloss.NewStyle(),
		Dim:      lipgloss.NewStyle(),
		Label:    lipgloss.NewStyle(),
		FileName: lipgloss.NewStyle(),
		Folder:   lipgloss.NewStyle(),
		Path:     lipgloss.NewStyle(),
		Meta:     lipgloss.NewStyle(),
		Panel:    lipgloss.NewStyle(),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
