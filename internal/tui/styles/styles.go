package styles

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	Base     = lipgloss.Color("#1e1e2e")
	Text     = lipgloss.Color("#cdd6f4")
	Subtext0 = lipgloss.Color("#a6adc8")
	Surface0 = lipgloss.Color("#313244")

	Pink   = lipgloss.Color("#f5c2e7")
	Mauve  = lipgloss.Color("#cba6f7")
	Red    = lipgloss.Color("#f38ba8")
	Peach  = lipgloss.Color("#fab387")
	Yellow = lipgloss.Color("#f9e2af")
	Green  = lipgloss.Color("#a6e3a1")
	Teal   = lipgloss.Color("#94e2d5")
	Blue   = lipgloss.Color("#89b4fa")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Pink).
			Padding(0, 1)

	ListItemStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(Text)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(Red).
			Padding(0, 1)

	ProgressBarEmptyStyle = lipgloss.NewStyle().Foreground(Surface0)

	StatusStarting    = lipgloss.NewStyle().Foreground(Yellow).Bold(true)
	StatusDownloading = lipgloss.NewStyle().Foreground(Teal).Bold(true)
	StatusCompleted   = lipgloss.NewStyle().Foreground(Green).Bold(true)
	StatusCancelled   = lipgloss.NewStyle().Foreground(Mauve).Bold(true)
	StatusFailed      = lipgloss.NewStyle().Foreground(Red).Bold(true)
	StatusUnknown     = lipgloss.NewStyle().Foreground(Peach).Bold(true)

	FooterStyle = lipgloss.NewStyle().
			Foreground(Subtext0).
			Padding(0, 1)
)
