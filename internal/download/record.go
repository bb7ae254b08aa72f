package download

import (
	"time"

	"github.com/chanomhub/gamedl/internal/status"
)

const (
	// UnknownFilename labels records synthesized from events that carry no filename.
	UnknownFilename = "Unknown file"

	// ExtractedSuffix is appended to a download path to find its extraction directory.
	ExtractedSuffix = "_extracted"
)

// Record is the persisted lifecycle state of one download attempt. Status is
// authoritative; Progress is advisory and may briefly disagree with it.
type Record struct {
	ID                 string            `json:"id"`
	Filename           string            `json:"filename"`
	URL                string            `json:"url"`
	Progress           float64           `json:"progress"`
	Status             status.Status     `json:"status"`
	Path               string            `json:"path,omitempty"`
	Error              string            `json:"error,omitempty"`
	Provider           string            `json:"provider,omitempty"`
	CompletedAt        *time.Time        `json:"downloaded_at,omitempty"`
	Extracted          bool              `json:"extracted"`
	ExtractedPath      string            `json:"extracted_path,omitempty"`
	ExtractionStatus   status.Extraction `json:"extraction_status,omitempty"`
	ExtractionProgress float64           `json:"extraction_progress"`
}

// New returns a record in the Starting state with idle extraction.
func New(id, url, filename, provider string) Record {
	return Record{
		ID:               id,
		Filename:         filename,
		URL:              url,
		Status:           status.Starting,
		Provider:         provider,
		ExtractionStatus: status.ExtractionIdle,
	}
}

// Complete marks the record as finished at path.
func (r *Record) Complete(path string, at time.Time) {
	at = at.UTC()
	r.Status = status.Completed
	r.Progress = 100
	r.Path = path
	r.Error = ""
	r.CompletedAt = &at
}

// Fail marks the record as failed with msg.
func (r *Record) Fail(msg string) {
	r.Status = status.Failed
	r.Error = msg
}

// Normalize restores the record invariants after a mutation.
func (r *Record) Normalize() {
	r.Progress = clamp(r.Progress)
	r.ExtractionProgress = clamp(r.ExtractionProgress)

	if r.ExtractionStatus == "" {
		r.ExtractionStatus = status.ExtractionIdle
	}

	if r.Extracted && r.ExtractedPath == "" {
		r.Extracted = false
	}

	if r.Status != status.Completed {
		r.CompletedAt = nil
	}
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		r.CompletedAt = &at
	}
	return r
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
