package cancel

import (
	"context"
	"testing"
	"time"
)

func TestCancel(t *testing.T) {
	t.Parallel()

	h := New(context.Background())
	if h.IsCancelled() {
		t.Fatalf("new handle reports cancelled")
	}

	h.Cancel()
	h.Cancel()

	if !h.IsCancelled() {
		t.Fatalf("IsCancelled = false after Cancel")
	}

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatalf("Done not closed after Cancel")
	}
}

func TestReleaseIsNotCancellation(t *testing.T) {
	t.Parallel()

	h := New(context.Background())
	h.Release()

	if h.IsCancelled() {
		t.Fatalf("Release must not mark the handle cancelled")
	}
	if h.Context().Err() == nil {
		t.Fatalf("context still live after Release")
	}
}

func TestParentCancellationReleases(t *testing.T) {
	t.Parallel()

	parent, stop := context.WithCancel(context.Background())
	h := New(parent)
	stop()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatalf("Done not closed after parent cancel")
	}
	if h.IsCancelled() {
		t.Fatalf("parent cancellation is not a user cancel")
	}
}
