package events_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanomhub/gamedl/internal/events"
)

func TestJSONLinesEmit(t *testing.T) {
	var buf bytes.Buffer
	em := events.NewJSONLines(&buf)

	require.NoError(t, em.Emit(events.DownloadProgress, events.Progress{ID: "d1", Progress: 42}))
	require.NoError(t, em.Emit(events.DownloadComplete, events.Complete{ID: "d1", Filename: "file.zip", Path: "/tmp/file.zip"}))
	require.NoError(t, em.Emit(events.ExtractionProgress, events.Extraction{DownloadID: "d1", Status: "extracting", Progress: 0}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.JSONEq(t, `{"event":"download-progress","payload":{"id":"d1","progress":42}}`, lines[0])
	assert.JSONEq(t, `{"event":"download-complete","payload":{"id":"d1","filename":"file.zip","path":"/tmp/file.zip"}}`, lines[1])
	assert.JSONEq(t, `{"event":"extraction-progress","payload":{"downloadId":"d1","status":"extracting","progress":0}}`, lines[2])
}

func TestJSONLinesConcurrent(t *testing.T) {
	var buf bytes.Buffer
	em := events.NewJSONLines(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = em.Emit(events.DownloadCancelled, events.Cancelled{ID: "d1"})
		}()
	}
	wg.Wait()

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.JSONEq(t, `{"event":"download-cancelled","payload":{"id":"d1"}}`, line)
	}
}

func TestJSONLinesEncodeSharesWriter(t *testing.T) {
	var buf bytes.Buffer
	em := events.NewJSONLines(&buf)

	require.NoError(t, em.Encode(map[string]any{"ref": "1", "ok": true}))
	require.NoError(t, em.Emit(events.DownloadCancelled, events.Cancelled{ID: "d1"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"ref":"1","ok":true}`, lines[0])
	assert.JSONEq(t, `{"event":"download-cancelled","payload":{"id":"d1"}}`, lines[1])
}

func TestRecorder(t *testing.T) {
	rec := &events.Recorder{}

	_ = rec.Emit(events.DownloadProgress, events.Progress{ID: "d1", Progress: 1})
	_ = rec.Emit(events.DownloadProgress, events.Progress{ID: "d1", Progress: 2})
	_ = rec.Emit(events.DownloadError, events.Error{ID: "d1", Error: "boom"})
	_ = rec.Notify(events.TitleFailed, "Failed to download: a.zip")

	assert.Equal(t, []string{events.DownloadProgress, events.DownloadProgress, events.DownloadError}, rec.Names())

	last, ok := rec.Last(events.DownloadProgress)
	require.True(t, ok)
	assert.Equal(t, events.Progress{ID: "d1", Progress: 2}, last.Payload)

	_, ok = rec.Last(events.UploadComplete)
	assert.False(t, ok)

	assert.Equal(t, []events.Message{{Title: "Download Failed", Body: "Failed to download: a.zip"}}, rec.Messages())
}

func TestThrottledNotifier(t *testing.T) {
	rec := &events.Recorder{}
	n := events.NewThrottled(rec, 1, 2)

	assert.NoError(t, n.Notify("a", "1"))
	assert.NoError(t, n.Notify("b", "2"))
	assert.ErrorIs(t, n.Notify("c", "3"), events.ErrThrottled)
	assert.Len(t, rec.Messages(), 2)
}

func TestThrottledUnlimited(t *testing.T) {
	rec := &events.Recorder{}
	n := events.NewThrottled(rec, 0, 0)

	for i := 0; i < 100; i++ {
		require.NoError(t, n.Notify("t", "b"))
	}
	assert.Len(t, rec.Messages(), 100)
}

func TestEmitterNotifier(t *testing.T) {
	rec := &events.Recorder{}
	n := events.EmitterNotifier{Emitter: rec}

	require.NoError(t, n.Notify(events.TitleComplete, "Downloaded: a.zip"))

	last, ok := rec.Last(events.Notification)
	require.True(t, ok)
	assert.Equal(t, events.Message{Title: "Download Complete", Body: "Downloaded: a.zip"}, last.Payload)
}
