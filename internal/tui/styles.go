package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/lu-zhengda/flowtag/internal/lookup"
	"github.com/lu-zhengda/flowtag/internal/protocol"
)

// Color palette.
var (
	colorGreen  = lipgloss.Color("2")
	colorYellow = lipgloss.Color("3")
	colorRed    = lipgloss.Color("1")
	colorGray   = lipgloss.Color("8")
	colorWhite  = lipgloss.Color("15")
	colorCyan   = lipgloss.Color("6")
)

// Layout styles.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Foreground(colorWhite)

	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			PaddingTop(1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite).
			Background(lipgloss.Color("24")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(colorGray).
				Padding(0, 1)

	// Row color styles.
	taggedStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	untaggedStyle = lipgloss.NewStyle().Foreground(colorYellow)
	unknownStyle  = lipgloss.NewStyle().Foreground(colorRed)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorRed)

	// Detail view styles.
	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorWhite)
)

// rowStyle highlights untagged traffic and unknown protocols.
func rowStyle(r row) lipgloss.Style {
	switch {
	case r.protocol == protocol.Unknown:
		return unknownStyle
	case r.tag == lookup.Untagged:
		return untaggedStyle
	default:
		return taggedStyle
	}
}
