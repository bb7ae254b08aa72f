package library

import (
	"time"

	"github.com/chanomhub/gamedl/internal/download"
)

// LaunchConfig is attached by the user to a saved game.
type LaunchConfig struct {
	ExecutablePath string `json:"executablePath"`
	LaunchMethod   string `json:"launchMethod"`
	CustomCommand  string `json:"customCommand,omitempty"`
}

// Game is a completed download promoted into the saved games list.
type Game struct {
	ID            string        `json:"id"`
	Filename      string        `json:"filename"`
	Path          string        `json:"path"`
	Extracted     bool          `json:"extracted"`
	ExtractedPath string        `json:"extracted_path,omitempty"`
	DownloadedAt  *time.Time    `json:"downloaded_at,omitempty"`
	LaunchConfig  *LaunchConfig `json:"launch_config,omitempty"`
	IconPath      string        `json:"icon_path,omitempty"`
}

// FromRecord converts a download record into a game without user data.
func FromRecord(rec download.Record) Game {
	rec = rec.Clone()
	return Game{
		ID:            rec.ID,
		Filename:      rec.Filename,
		Path:          rec.Path,
		Extracted:     rec.Extracted,
		ExtractedPath: rec.ExtractedPath,
		DownloadedAt:  rec.CompletedAt,
	}
}
