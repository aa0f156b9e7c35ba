package output

import "github.com/charmbracelet/lipgloss"

// Color constants using the ANSI 256-color palette, shared by the styled
// formatters.
const (
	// ColorPrimary is used for headers (bright blue).
	ColorPrimary = lipgloss.Color("39")

	// ColorSuccess is used for passing rules (green).
	ColorSuccess = lipgloss.Color("42")

	// ColorWarning is used for pending/timeout notices (orange).
	ColorWarning = lipgloss.Color("214")

	// ColorDanger is used for failing rules (red).
	ColorDanger = lipgloss.Color("196")

	// ColorMuted is used for secondary text (gray).
	ColorMuted = lipgloss.Color("245")
)

var (
	// HeaderBox contains the run metadata section.
	HeaderBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1)

	// FooterBox contains the summary section.
	FooterBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1).
			MarginTop(1)

	// LabelStyle renders field labels.
	LabelStyle = lipgloss.NewStyle().Foreground(ColorMuted)

	// ValueStyle renders field values.
	ValueStyle = lipgloss.NewStyle().Foreground(ColorPrimary)

	// PassStyle renders passing rule markers.
	PassStyle = lipgloss.NewStyle().Foreground(ColorSuccess)

	// FailStyle renders failing rule markers.
	FailStyle = lipgloss.NewStyle().Foreground(ColorDanger).Bold(true)

	// PendingStyle renders pending rule markers.
	PendingStyle = lipgloss.NewStyle().Foreground(ColorWarning)

	// MutedStyle renders secondary text.
	MutedStyle = lipgloss.NewStyle().Foreground(ColorMuted)
)
