// Package registry holds the in-memory map of download id to lifecycle
// record and the side-table of cancellation handles. Every mutation is
// persisted before the lock is released.
package registry

import (
	"sort"
	"sync"

	"github.com/chanomhub/gamedl/internal/cancel"
	"github.com/chanomhub/gamedl/internal/download"
	"github.com/chanomhub/gamedl/internal/errors"
	"github.com/chanomhub/gamedl/internal/logger"
)

// InterruptedReason is recorded on downloads that were in flight when the
// previous process exited.
const InterruptedReason = "Download interrupted due to application restart"

// Store persists the whole registry.
type Store interface {
	LoadDownloads() (map[string]download.Record, error)
	SaveDownloads(downloads map[string]download.Record) error
}

// Registry is the single source of truth for download state.
type Registry struct {
	mu      sync.RWMutex
	store   Store
	records map[string]download.Record
	handles map[string]*cancel.Handle
	closed  bool
}

func New(store Store) *Registry {
	return &Registry{
		store:   store,
		records: make(map[string]download.Record),
		handles: make(map[string]*cancel.Handle),
	}
}

// Load replaces the in-memory state with the persisted snapshot. Records left
// Starting or Downloading by a previous process are marked Failed and the
// repaired snapshot is written back. It returns how many were repaired.
func (r *Registry) Load() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, errors.NewLockError("load", "", errors.ErrRegistryClosed)
	}

	loaded, err := r.store.LoadDownloads()
	if err != nil {
		return 0, errors.NewIOError("load", "downloads", err)
	}

	r.records = make(map[string]download.Record, len(loaded))
	reconciled := 0
	for id, rec := range loaded {
		if rec.Status.IsActive() {
			logger.Warnf("Download %s was %s at shutdown, marking failed", id, rec.Status)
			rec.Fail(InterruptedReason)
			reconciled++
		}

		rec.ID = id
		rec.Normalize()
		r.records[id] = rec
	}

	logger.Infof("Loaded %d download(s) from state", len(r.records))

	if reconciled == 0 {
		return 0, nil
	}

	return reconciled, r.persistLocked()
}

// Upsert inserts rec, overwriting any record with the same id.
func (r *Registry) Upsert(rec download.Record) error {
	_, _, err := r.Apply(rec.ID, func(cur *download.Record, _ bool) bool {
		*cur = rec
		return true
	})
	return err
}

// Update applies fn to the record id. It is a no-op returning false when the
// id is absent.
func (r *Registry) Update(id string, fn func(rec *download.Record)) (bool, error) {
	_, found, err := r.Apply(id, func(rec *download.Record, found bool) bool {
		if !found {
			return false
		}
		fn(rec)
		return true
	})
	return found, err
}

// Apply is the single mutation path. fn receives a copy of the current record
// (the zero record when absent) and reports whether to commit it. The
// committed record is normalized, persisted with the rest of the registry
// and, when terminal, loses its cancellation handle. Apply returns the record
// as it stands afterwards and whether id existed before the call.
//
// A failed write keeps the in-memory change and returns a persistence error.
func (r *Registry) Apply(id string, fn func(rec *download.Record, found bool) bool) (download.Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return download.Record{}, false, errors.NewLockError("apply", id, errors.ErrRegistryClosed)
	}

	cur, found := r.records[id]
	next := cur.Clone()
	if !fn(&next, found) {
		return cur.Clone(), found, nil
	}

	next.ID = id
	next.Normalize()
	r.records[id] = next

	if next.Status.IsTerminal() {
		r.dropHandleLocked(id)
	}

	return next.Clone(), found, r.persistLocked()
}

// Get returns a copy of the record id.
func (r *Registry) Get(id string) (download.Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	return rec.Clone(), ok
}

// All returns a snapshot of every record ordered by id.
func (r *Registry) All() []download.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]download.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Clone())
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Track inserts rec together with its cancellation handle. It fails when id
// already has a live handle.
func (r *Registry) Track(rec download.Record, h *cancel.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.NewLockError("track", rec.ID, errors.ErrRegistryClosed)
	}

	if _, ok := r.handles[rec.ID]; ok {
		return errors.NewInvalidError("track", rec.ID, errors.ErrAlreadyActive)
	}

	rec.Normalize()
	r.records[rec.ID] = rec
	if rec.Status.IsTerminal() {
		h.Release()
		delete(r.handles, rec.ID)
	} else {
		r.handles[rec.ID] = h
	}

	return r.persistLocked()
}

// Handle returns the live cancellation handle for id.
func (r *Registry) Handle(id string) (*cancel.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handles[id]
	return h, ok
}

// TakeHandle removes and returns the cancellation handle for id.
func (r *Registry) TakeHandle(id string) (*cancel.Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handles[id]
	if ok {
		delete(r.handles, id)
	}
	return h, ok
}

// RemoveCancellation drops and releases the handle for id, if any.
func (r *Registry) RemoveCancellation(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dropHandleLocked(id)
}

// Prune deletes every record matching pred, skipping downloads that still
// have a live cancellation handle.
func (r *Registry) Prune(pred func(rec download.Record) bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, errors.NewLockError("prune", "", errors.ErrRegistryClosed)
	}

	removed := 0
	for id, rec := range r.records {
		if _, live := r.handles[id]; live {
			continue
		}
		if pred(rec.Clone()) {
			delete(r.records, id)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}

	logger.Infof("Pruned %d download(s)", removed)
	return removed, r.persistLocked()
}

// Close releases every handle. Further mutations fail with a lock error.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range r.handles {
		r.dropHandleLocked(id)
	}
	r.closed = true
}

// Terminal reports whether rec needs no cancellation handle.
func Terminal(rec download.Record) bool {
	return rec.Status.IsTerminal()
}

func (r *Registry) dropHandleLocked(id string) {
	if h, ok := r.handles[id]; ok {
		h.Release()
		delete(r.handles, id)
	}
}

func (r *Registry) persistLocked() error {
	snapshot := make(map[string]download.Record, len(r.records))
	for id, rec := range r.records {
		snapshot[id] = rec.Clone()
	}

	if err := r.store.SaveDownloads(snapshot); err != nil {
		logger.Errorf("Failed to save downloads state: %v", err)
		return errors.NewPersistenceError("downloads", err)
	}

	return nil
}
