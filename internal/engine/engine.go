// Package engine coordinates downloads performed by the external helper. It
// owns the event state machine, startup repair, cancellation and the
// extraction and upload reports that share the same event channel.
package engine

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chanomhub/gamedl/internal/cancel"
	"github.com/chanomhub/gamedl/internal/download"
	"github.com/chanomhub/gamedl/internal/errors"
	"github.com/chanomhub/gamedl/internal/events"
	"github.com/chanomhub/gamedl/internal/helper"
	"github.com/chanomhub/gamedl/internal/library"
	"github.com/chanomhub/gamedl/internal/logger"
	"github.com/chanomhub/gamedl/internal/registry"
	"github.com/chanomhub/gamedl/internal/status"
	"github.com/chanomhub/gamedl/internal/upload"
)

// ErrEngineStopped is returned by Start after Shutdown.
var ErrEngineStopped = errors.New("engine is shut down")

type Engine struct {
	config    *Config
	registry  *registry.Registry
	launcher  Launcher
	emitter   events.Emitter
	notifier  events.Notifier
	library   *library.Library
	settings  SettingsStore
	extractor Extractor
	uploader  upload.Uploader
	now       func() time.Time

	dirMu       sync.RWMutex
	downloadDir string

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// New creates an engine over reg. Helpers started by the engine live until
// they exit or Shutdown is called.
func New(config *Config, reg *registry.Registry, launcher Launcher, opts ...Option) *Engine {
	if config == nil {
		config = DefaultConfig()
	}

	ctx, cancelFunc := context.WithCancel(context.Background())

	e := &Engine{
		config:      config,
		registry:    reg,
		launcher:    launcher,
		emitter:     events.Discard,
		notifier:    events.Silent,
		now:         time.Now,
		downloadDir: config.DownloadDir,
		ctx:         ctx,
		cancelFunc:  cancelFunc,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// runTask runs a function in a goroutine tracked by the WaitGroup
func (e *Engine) runTask(task func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		task()
	}()
}

// Start registers a new download and hands it to a helper process. The
// returned record is in the Starting state. The download directory is
// created first. When it cannot be created or the helper cannot be launched
// the record is failed and an error is returned.
func (e *Engine) Start(ctx context.Context, req StartRequest) (download.Record, error) {
	if err := ctx.Err(); err != nil {
		return download.Record{}, err
	}

	if e.ctx.Err() != nil {
		return download.Record{}, errors.NewLockError("start", req.ID, ErrEngineStopped)
	}

	if req.URL == "" {
		return download.Record{}, errors.NewInvalidError("start", req.ID, errors.New("url is required"))
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	if req.Filename == "" {
		req.Filename = filenameFromURL(req.URL)
	}

	rec := download.New(req.ID, req.URL, req.Filename, e.config.Provider)
	h := cancel.New(e.ctx)

	persistErr := e.registry.Track(rec, h)
	if persistErr != nil && !errors.IsPersistence(persistErr) {
		h.Release()
		return download.Record{}, persistErr
	}

	dir := e.DownloadDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Errorf("Failed to create download directory %s: %v", dir, err)
		if herr := e.HandleEvent(helper.ErrorEvent(req.ID, fmt.Sprintf("failed to create download directory: %v", err))); herr != nil {
			logger.Errorf("Failed to record start failure for %s: %v", req.ID, herr)
		}

		failed, _ := e.registry.Get(req.ID)
		return failed, errors.NewIOError("create", dir, err)
	}

	// A Cancel may have taken the handle since Track.
	if h.IsCancelled() {
		logger.Infof("Download %s cancelled before its helper started", req.ID)
		cancelled, _ := e.registry.Get(req.ID)
		return cancelled, persistErr
	}

	logger.Infof("Starting download %s: %s -> %s", req.ID, req.URL, filepath.Join(dir, req.Filename))

	proc, err := e.launcher.Spawn(e.ctx, helper.NewStartCommand(req.ID, req.URL, dir, req.Filename))
	if err != nil {
		logger.Errorf("Failed to spawn helper for %s: %v", req.ID, err)
		if herr := e.HandleEvent(helper.ErrorEvent(req.ID, fmt.Sprintf("helper process error: %v", err))); herr != nil {
			logger.Errorf("Failed to record spawn failure for %s: %v", req.ID, herr)
		}

		failed, _ := e.registry.Get(req.ID)
		return failed, err
	}

	e.runTask(func() {
		e.watch(req.ID, h, proc)
	})

	return rec, persistErr
}

// Cancel stops tracking the download id and tells a helper instance to stop.
//
// Cancellation is cooperative and unverified: the helper that runs the
// download is not killed, and any event it still reports for id is dropped.
// Cancel fails with a not-found error when id has no live download.
func (e *Engine) Cancel(ctx context.Context, id string) error {
	h, ok := e.registry.TakeHandle(id)
	if !ok {
		return errors.NewNotFoundError("cancel", id)
	}

	h.Cancel()

	rec, _, err := e.registry.Apply(id, func(rec *download.Record, found bool) bool {
		if !found || rec.Status.IsTerminal() {
			return false
		}
		rec.Status = status.Cancelled
		rec.Error = CancelledReason
		return true
	})
	if err != nil && !errors.IsPersistence(err) {
		return err
	}

	if serr := e.launcher.Send(e.ctx, helper.NewCancelCommand(id)); serr != nil {
		logger.Warnf("Failed to send cancel command for %s: %v", id, serr)
	}

	if rec.Status == status.Cancelled {
		logger.Infof("Download %s cancelled", id)
		e.publish(events.DownloadCancelled, events.Cancelled{ID: id})
		e.notify(events.TitleCancelled, fmt.Sprintf("Download %s was cancelled", id))
	}

	return err
}

// List returns a snapshot of every download ordered by id.
func (e *Engine) List() []download.Record {
	return e.registry.All()
}

func (e *Engine) Get(id string) (download.Record, error) {
	rec, ok := e.registry.Get(id)
	if !ok {
		return download.Record{}, errors.NewNotFoundError("get", id)
	}
	return rec, nil
}

// RegisterManual records a file that was downloaded outside the engine as
// Completed. An existing <path>_extracted sibling marks it as extracted.
func (e *Engine) RegisterManual(id, filename, filePath string) (download.Record, error) {
	if filePath == "" {
		return download.Record{}, errors.NewInvalidError("register", id, errors.New("path is required"))
	}

	if id == "" {
		id = uuid.NewString()
	}

	if filename == "" {
		filename = filepath.Base(filePath)
	}

	if _, live := e.registry.Handle(id); live {
		return download.Record{}, errors.NewInvalidError("register", id, errors.ErrAlreadyActive)
	}

	rec := download.New(id, "", filename, "")
	rec.Complete(filePath, e.now())

	extractedPath := filePath + download.ExtractedSuffix
	if _, err := os.Stat(extractedPath); err == nil {
		rec.Extracted = true
		rec.ExtractedPath = extractedPath
		rec.ExtractionStatus = status.ExtractionCompleted
		rec.ExtractionProgress = 100
	}

	logger.Infof("Manually registered download %s at %s (extracted: %t)", id, filePath, rec.Extracted)

	err := e.registry.Upsert(rec)
	if err != nil && !errors.IsPersistence(err) {
		return download.Record{}, err
	}

	e.publish(events.DownloadComplete, events.Complete{ID: id, Filename: filename, Path: filePath})
	e.promote(rec)

	return rec, err
}

// Prune removes finished downloads matching pred. Live downloads are kept.
func (e *Engine) Prune(pred func(rec download.Record) bool) (int, error) {
	if pred == nil {
		pred = registry.Terminal
	}
	return e.registry.Prune(pred)
}

// DownloadDir returns the folder handed to new helper processes.
func (e *Engine) DownloadDir() string {
	if e.settings != nil {
		dir, err := e.settings.GetSetting(downloadDirKey)
		if err == nil && dir != "" {
			return dir
		}
	}

	e.dirMu.RLock()
	defer e.dirMu.RUnlock()

	return e.downloadDir
}

// SetDownloadDir creates dir and uses it for downloads started afterwards.
func (e *Engine) SetDownloadDir(dir string) error {
	if dir == "" {
		return errors.NewInvalidError("set download dir", "", errors.New("directory is required"))
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return errors.NewIOError("resolve", dir, err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return errors.NewIOError("create", abs, err)
	}

	e.dirMu.Lock()
	e.downloadDir = abs
	e.dirMu.Unlock()

	if e.settings != nil {
		if err := e.settings.PutSetting(downloadDirKey, abs); err != nil {
			return errors.NewPersistenceError("settings", err)
		}
	}

	logger.Infof("Download directory set to %s", abs)
	return nil
}

// Wait blocks until every helper started so far has exited and its events
// were applied.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Shutdown kills running helpers and waits for their watchers. Downloads
// left in flight are repaired to Failed on the next Load.
func (e *Engine) Shutdown(ctx context.Context) error {
	logger.Infof("Starting engine shutdown...")
	e.cancelFunc()

	waitChan := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(waitChan)
	}()

	select {
	case <-waitChan:
		logger.Infof("Engine shutdown complete")
		return nil
	case <-ctx.Done():
		logger.Warnf("Shutdown timed out, some helpers may still be running")
		return ctx.Err()
	}
}

func (e *Engine) publish(name string, payload any) {
	if err := e.emitter.Emit(name, payload); err != nil {
		logger.Warnf("Failed to emit %s: %v", name, err)
	}
}

func (e *Engine) notify(title, body string) {
	if err := e.notifier.Notify(title, body); err != nil {
		logger.Warnf("Failed to show notification %q: %v", title, err)
	}
}

func (e *Engine) promote(rec download.Record) {
	if e.library == nil || rec.Status != status.Completed {
		return
	}

	if err := e.library.Promote(rec); err != nil {
		logger.Errorf("Failed to save game %s: %v", rec.ID, err)
	}
}

func filenameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return download.UnknownFilename
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return download.UnknownFilename
	}

	return name
}
