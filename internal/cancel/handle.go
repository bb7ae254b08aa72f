// Package cancel provides the process-local token used to cooperatively stop
// one in-flight download.
package cancel

import (
	"context"
	"sync/atomic"
)

// Handle is a cancellation token for one download. It is never persisted and
// is meaningless after a restart.
type Handle struct {
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// New creates a handle derived from parent. Cancelling parent releases the
// handle without marking it user-cancelled.
func New(parent context.Context) *Handle {
	ctx, cancel := context.WithCancel(parent)
	return &Handle{ctx: ctx, cancel: cancel}
}

// Cancel marks the handle cancelled and wakes everything waiting on Done.
// It is safe to call more than once.
func (h *Handle) Cancel() {
	h.cancelled.Store(true)
	h.cancel()
}

// IsCancelled reports whether Cancel was called.
func (h *Handle) IsCancelled() bool {
	return h.cancelled.Load()
}

// Release frees the handle's resources without marking it cancelled.
func (h *Handle) Release() {
	h.cancel()
}

func (h *Handle) Done() <-chan struct{} {
	return h.ctx.Done()
}

// Context returns a context that ends when the handle is cancelled or released.
func (h *Handle) Context() context.Context {
	return h.ctx
}
