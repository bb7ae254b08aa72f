package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/chanomhub/gamedl/internal/status"
	"github.com/chanomhub/gamedl/internal/tui/styles"
)

// ProgressBar returns a styled progress bar for a fraction between 0 and 1.
func ProgressBar(width int, fraction float64, s status.Status) string {
	if width <= 0 {
		return ""
	}

	if fraction < 0 {
		fraction = 0
	}

	if fraction > 1.0 {
		fraction = 1.0
	}

	filledWidth := int(float64(width) * fraction)
	emptyWidth := width - filledWidth

	filledStr := strings.Repeat("█", filledWidth)
	emptyStr := strings.Repeat("░", emptyWidth)

	var color lipgloss.Color

	switch s {
	case status.Downloading:
		color = styles.Teal
	case status.Completed:
		color = styles.Green
	case status.Cancelled:
		color = styles.Mauve
	case status.Failed:
		color = styles.Red
	case status.Unknown:
		color = styles.Peach
	default: // Starting
		color = styles.Yellow
	}

	return lipgloss.NewStyle().Foreground(color).Render(filledStr) + styles.ProgressBarEmptyStyle.Render(emptyStr)
}
