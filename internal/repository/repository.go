package repository

import (
	"github.com/chanomhub/gamedl/internal/download"
)

// Snapshot is the on-disk layout of the download registry. Cancellation
// handles are process-local and never part of it.
type Snapshot struct {
	Downloads map[string]download.Record `json:"downloads"`
}

// DownloadStore persists the whole registry. SaveDownloads replaces the
// previous contents entirely.
type DownloadStore interface {
	LoadDownloads() (map[string]download.Record, error)
	SaveDownloads(downloads map[string]download.Record) error
}

var (
	_ DownloadStore = (*FileStore)(nil)
	_ DownloadStore = (*BboltRepository)(nil)
)

// withIDs fills ids missing from hand-edited files with their map key.
func withIDs(downloads map[string]download.Record) map[string]download.Record {
	if downloads == nil {
		return make(map[string]download.Record)
	}

	for id, rec := range downloads {
		if rec.ID == "" {
			rec.ID = id
			downloads[id] = rec
		}
	}

	return downloads
}
