package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	ColorOK    = lipgloss.Color("#22c55e")
	ColorWarn  = lipgloss.Color("#f59e0b")
	ColorFail  = lipgloss.Color("#ef4444")
	ColorMuted = lipgloss.Color("#6b7280")
)

var (
	TitleStyle  = lipgloss.NewStyle().Bold(true)
	OKStyle     = lipgloss.NewStyle().Foreground(ColorOK)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail).Bold(true)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	DetailStyle = lipgloss.NewStyle().PaddingLeft(5)
)

// DefaultWidth is used when the terminal size is unknown.
const DefaultWidth = 60

// TerminalWidth returns the column count of f, capped at 100.
func TerminalWidth(f *os.File) int {
	if f == nil || !IsTerminal(f) {
		return DefaultWidth
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return DefaultWidth
	}
	return min(w, 100)
}

// Rule draws a horizontal line of the given width.
func Rule(width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	return MutedStyle.Render(strings.Repeat("=", width))
}
