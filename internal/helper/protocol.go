package helper

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chanomhub/gamedl/internal/errors"
)

const (
	ActionStart  = "setDownload"
	ActionCancel = "cancelDownload"
)

// Status values reported by the helper. Anything else is passed through and
// treated as unknown.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusProgress = "progress"
	StatusUnknown  = "unknown"
)

// Command is an instruction serialized into the helper's only argument.
type Command interface {
	command()
}

// StartCommand asks the helper to download URL into SaveFolder.
type StartCommand struct {
	Action     string `json:"action"`
	URL        string `json:"url"`
	SaveFolder string `json:"saveFolder"`
	DownloadID string `json:"downloadId"`
	Filename   string `json:"filename"`
}

// CancelCommand asks a helper instance to stop working on DownloadID.
type CancelCommand struct {
	Action     string `json:"action"`
	DownloadID string `json:"downloadId"`
}

func (StartCommand) command()  {}
func (CancelCommand) command() {}

func NewStartCommand(id, url, saveFolder, filename string) StartCommand {
	return StartCommand{
		Action:     ActionStart,
		URL:        url,
		SaveFolder: saveFolder,
		DownloadID: id,
		Filename:   filename,
	}
}

func NewCancelCommand(id string) CancelCommand {
	return CancelCommand{Action: ActionCancel, DownloadID: id}
}

// Encode returns the JSON argument passed to the helper.
func Encode(c Command) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to serialize helper command: %w", err)
	}
	return string(b), nil
}

// Event is one status line emitted by the helper.
type Event struct {
	DownloadID      string   `json:"downloadId"`
	Status          string   `json:"status"`
	Progress        *float64 `json:"progress,omitempty"`
	Path            string   `json:"path,omitempty"`
	Filename        string   `json:"filename,omitempty"`
	Message         string   `json:"message,omitempty"`
	DownloadStarted bool     `json:"downloadStarted,omitempty"`
}

// ErrorEvent builds the event used when the helper could not report its own failure.
func ErrorEvent(id, message string) Event {
	return Event{DownloadID: id, Status: StatusError, Message: message}
}

// DecodeEvent parses one output line. Lines that are not a JSON object are
// diagnostics and yield a malformed event error. A missing status decodes
// as StatusUnknown.
func DecodeEvent(line string) (Event, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return Event{}, errors.NewMalformedError(trimmed, errors.New("not a JSON object"))
	}

	var ev Event
	if err := json.Unmarshal([]byte(trimmed), &ev); err != nil {
		return Event{}, errors.NewMalformedError(trimmed, err)
	}

	if ev.Status == "" {
		ev.Status = StatusUnknown
	}

	return ev, nil
}

// ProgressValue returns the reported progress, or def when absent.
func (e Event) ProgressValue(def float64) float64 {
	if e.Progress == nil {
		return def
	}
	return *e.Progress
}
