package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/chanomhub/gamedl/internal/download"
	"github.com/chanomhub/gamedl/internal/library"
	"github.com/chanomhub/gamedl/internal/status"
	"github.com/chanomhub/gamedl/internal/tui/styles"
)

// RenderDownloadList renders every record followed by a status summary.
func RenderDownloadList(records []download.Record, width int) string {
	if len(records) == 0 {
		return renderEmptyView("No downloads yet", "Run 'gamedl start --url <url>' to add one")
	}

	rows := make([]string, 0, len(records)+2)
	rows = append(rows, styles.HeaderStyle.Render("Downloads"))

	counts := make(map[status.Status]int)
	for _, rec := range records {
		counts[rec.Status]++
		rows = append(rows, DownloadItem(rec, width))
	}

	footer := fmt.Sprintf("%d total  %d active  %d completed  %d failed  %d cancelled",
		len(records),
		counts[status.Starting]+counts[status.Downloading],
		counts[status.Completed],
		counts[status.Failed],
		counts[status.Cancelled])
	rows = append(rows, styles.FooterStyle.Render(footer))

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// RenderGameList renders the saved games, one per line.
func RenderGameList(games []library.Game) string {
	if len(games) == 0 {
		return renderEmptyView("No saved games", "Completed downloads show up here")
	}

	rows := []string{styles.HeaderStyle.Render("Games")}

	for _, g := range games {
		location := g.Path
		if g.Extracted && g.ExtractedPath != "" {
			location = g.ExtractedPath
		}

		line := fmt.Sprintf("%-*s %s", maxNameLen, truncate(g.Filename), location)
		if g.LaunchConfig != nil {
			line += fmt.Sprintf("  [%s %s]", g.LaunchConfig.LaunchMethod, g.LaunchConfig.ExecutablePath)
		}

		rows = append(rows, styles.ListItemStyle.Render(line))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderEmptyView(title, instruction string) string {
	subtitle := lipgloss.NewStyle().Foreground(styles.Text).Italic(true).Render(title)
	hint := lipgloss.NewStyle().Foreground(styles.Subtext0).Render(instruction)

	return lipgloss.JoinVertical(lipgloss.Left, subtitle, hint)
}

func truncate(name string) string {
	if len(name) > maxNameLen {
		return name[:maxNameLen-3] + "..."
	}
	return name
}
