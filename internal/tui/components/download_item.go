package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/chanomhub/gamedl/internal/download"
	"github.com/chanomhub/gamedl/internal/status"
	"github.com/chanomhub/gamedl/internal/tui/styles"
)

const maxNameLen = 30

// DownloadItem renders a single download record within the available width.
func DownloadItem(rec download.Record, width int) string {
	name := truncate(rec.Filename)

	fraction := rec.Progress / 100
	if rec.Status == status.Completed {
		fraction = 1.0
	}

	statusLabel := StatusLabel(rec.Status)

	percentStyle := lipgloss.NewStyle().Width(10).Align(lipgloss.Right)
	formattedPercent := percentStyle.Render(fmt.Sprintf("%.1f%%", fraction*100))

	remainingSpace := width - maxNameLen - lipgloss.Width(statusLabel) - lipgloss.Width(formattedPercent) - 3
	if remainingSpace < 2 {
		remainingSpace = 2
	}

	line1 := fmt.Sprintf("%-*s %s%s%s",
		maxNameLen,
		name,
		statusLabel,
		strings.Repeat(" ", remainingSpace),
		formattedPercent)

	barWidth := width - 6
	if barWidth < 10 {
		barWidth = 10
	}

	line2 := styles.ListItemStyle.Render(ProgressBar(barWidth, fraction, rec.Status))
	line3 := styles.ListItemStyle.Faint(true).Render(details(rec))

	lines := []string{line1, line2, line3}
	if rec.Error != "" && rec.Status != status.Completed {
		lines = append(lines, styles.ErrorTextStyle.Render(rec.Error))
	}

	return styles.ListItemStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// StatusLabel returns the styled marker for s.
func StatusLabel(s status.Status) string {
	switch s {
	case status.Starting:
		return styles.StatusStarting.Render("○ starting")
	case status.Downloading:
		return styles.StatusDownloading.Render("● downloading")
	case status.Completed:
		return styles.StatusCompleted.Render("✔ completed")
	case status.Cancelled:
		return styles.StatusCancelled.Render("⊘ cancelled")
	case status.Failed:
		return styles.StatusFailed.Render("✖ failed")
	default:
		return styles.StatusUnknown.Render("? unknown")
	}
}

func details(rec download.Record) string {
	parts := []string{rec.ID}

	if rec.Provider != "" {
		parts = append(parts, rec.Provider)
	}

	if rec.Path != "" {
		parts = append(parts, rec.Path)
	}

	if rec.CompletedAt != nil {
		parts = append(parts, formatAge(time.Since(*rec.CompletedAt))+" ago")
	}

	if rec.Extracted {
		parts = append(parts, "extracted")
	} else if rec.ExtractionStatus != "" && rec.ExtractionStatus != status.ExtractionIdle {
		parts = append(parts, fmt.Sprintf("extraction %s %.0f%%", rec.ExtractionStatus, rec.ExtractionProgress))
	}

	return strings.Join(parts, "  ")
}

// formatAge returns a more user-friendly duration string.
func formatAge(d time.Duration) string {
	d = d.Round(time.Second)

	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		m := d / time.Minute
		s := (d % time.Minute) / time.Second
		return fmt.Sprintf("%dm %ds", m, s)
	case d < 24*time.Hour:
		h := d / time.Hour
		m := (d % time.Hour) / time.Minute
		return fmt.Sprintf("%dh %dm", h, m)
	default:
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	}
}
