package engine

import (
	"context"
	"os"
	"time"

	"github.com/chanomhub/gamedl/internal/events"
	"github.com/chanomhub/gamedl/internal/helper"
	"github.com/chanomhub/gamedl/internal/library"
	"github.com/chanomhub/gamedl/internal/upload"
)

// Messages recorded on records and in synthesized helper events.
const (
	CancelledReason = "Download cancelled by user"

	startedProgress   = 0.1
	confirmedProgress = 10.0

	downloadDirKey = "download_dir"
)

// Config contains engine configuration
type Config struct {
	DownloadDir string // Used until a download directory is set explicitly
	Provider    string // Recorded on downloads started through the helper
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() *Config {
	return &Config{
		DownloadDir: os.TempDir(),
		Provider:    "webview2",
	}
}

// StartRequest asks for one download. ID and Filename are derived when empty.
type StartRequest struct {
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
	ID       string `json:"id,omitempty"`
}

// Launcher starts helper processes.
type Launcher interface {
	Spawn(ctx context.Context, c helper.Command) (*helper.Process, error)
	Send(ctx context.Context, c helper.Command) error
}

// SettingsStore persists download settings.
type SettingsStore interface {
	GetSetting(key string) (string, error)
	PutSetting(key, value string) error
}

// Extractor unpacks archive into outputDir, reporting progress in percent.
type Extractor interface {
	Extract(ctx context.Context, archive, outputDir string, progress func(percent float64)) error
}

// Option configures optional collaborators of the engine.
type Option func(*Engine)

func WithEmitter(em events.Emitter) Option {
	return func(e *Engine) { e.emitter = em }
}

func WithNotifier(n events.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithLibrary promotes every completed download into lib.
func WithLibrary(lib *library.Library) Option {
	return func(e *Engine) { e.library = lib }
}

func WithSettings(s SettingsStore) Option {
	return func(e *Engine) { e.settings = s }
}

func WithExtractor(x Extractor) Option {
	return func(e *Engine) { e.extractor = x }
}

func WithUploader(u upload.Uploader) Option {
	return func(e *Engine) { e.uploader = u }
}

// WithClock overrides the time source used for completion timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}
