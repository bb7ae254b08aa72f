package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanomhub/gamedl/internal/engine"
	"github.com/chanomhub/gamedl/internal/errors"
	"github.com/chanomhub/gamedl/internal/events"
	"github.com/chanomhub/gamedl/internal/helper"
	"github.com/chanomhub/gamedl/internal/status"
)

type fakeExtractor struct {
	err     error
	archive string
	output  string
}

func (f *fakeExtractor) Extract(_ context.Context, archive, outputDir string, progress func(float64)) error {
	f.archive, f.output = archive, outputDir
	progress(50)
	if f.err != nil {
		return f.err
	}
	return os.MkdirAll(outputDir, 0o755)
}

type fakeUploader struct {
	err  error
	path string
}

func (f *fakeUploader) Upload(_ context.Context, id, localPath string) (string, error) {
	f.path = localPath
	if f.err != nil {
		return "", f.err
	}
	return "s3://games/" + id, nil
}

func extractionStatuses(rec *events.Recorder) []string {
	var out []string
	for _, env := range rec.Events() {
		if x, ok := env.Payload.(events.Extraction); ok {
			out = append(out, x.Status)
		}
	}
	return out
}

func completedDownload(t *testing.T, h *harness, id string) string {
	t.Helper()

	path := filepath.Join(h.dir, id+".zip")
	require.NoError(t, os.WriteFile(path, []byte("zip"), 0o644))
	require.NoError(t, h.engine.HandleEvent(helper.Event{DownloadID: id, Status: "success", Path: path, Filename: id + ".zip"}))
	return path
}

func TestExtract(t *testing.T) {
	x := &fakeExtractor{}
	h := newHarness(t, idle(), engine.WithExtractor(x))
	path := completedDownload(t, h, "d1")

	rec, err := h.engine.Extract(context.Background(), "d1", "")
	require.NoError(t, err)
	assert.Equal(t, path, x.archive)
	assert.Equal(t, path+"_extracted", x.output)

	assert.True(t, rec.Extracted)
	assert.Equal(t, path+"_extracted", rec.ExtractedPath)
	assert.Equal(t, status.ExtractionCompleted, rec.ExtractionStatus)
	assert.Equal(t, 100.0, rec.ExtractionProgress)
	assert.Equal(t, status.Completed, rec.Status)
	assert.Equal(t, rec, h.onDisk(t, "d1"))

	assert.Equal(t, []string{"extracting", "extracting", "completed"}, extractionStatuses(h.recorder))
	assert.Contains(t, h.recorder.Messages(), events.Message{Title: "Extraction Complete", Body: "Extracted: d1.zip"})
}

func TestExtractFailure(t *testing.T) {
	x := &fakeExtractor{err: errors.New("corrupt archive")}
	h := newHarness(t, idle(), engine.WithExtractor(x))
	completedDownload(t, h, "d1")

	rec, err := h.engine.Extract(context.Background(), "d1", filepath.Join(h.dir, "out"))
	require.Error(t, err)
	assert.Equal(t, status.ExtractionFailed, rec.ExtractionStatus)
	assert.Zero(t, rec.ExtractionProgress)
	assert.False(t, rec.Extracted)

	last, ok := h.recorder.Last(events.ExtractionProgress)
	require.True(t, ok)
	assert.Equal(t, events.Extraction{DownloadID: "d1", Status: "failed", Progress: 0, Error: "corrupt archive"}, last.Payload)
}

func TestExtractRequiresCompletedDownload(t *testing.T) {
	h := newHarness(t, idle(), engine.WithExtractor(&fakeExtractor{}))

	_, err := h.engine.Extract(context.Background(), "missing", "")
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, h.engine.HandleEvent(helper.Event{DownloadID: "d2", Status: "progress", Progress: pct(5)}))
	_, err = h.engine.Extract(context.Background(), "d2", "")
	assert.True(t, errors.IsInvalid(err))

	plain := newHarness(t, idle())
	_, err = plain.engine.Extract(context.Background(), "d2", "")
	assert.True(t, errors.IsInvalid(err))
}

func TestExtractionReportsForUnknownID(t *testing.T) {
	h := newHarness(t, idle())

	require.NoError(t, h.engine.ExtractionStarted("ghost"))
	h.engine.ExtractionProgress("ghost", 30)
	require.NoError(t, h.engine.ExtractionCompleted("ghost", "/tmp/ghost"))

	assert.Empty(t, h.engine.List())
	assert.Equal(t, []string{"extracting", "extracting", "completed"}, extractionStatuses(h.recorder))
}

func TestUpload(t *testing.T) {
	up := &fakeUploader{}
	h := newHarness(t, idle(), engine.WithUploader(up))
	path := completedDownload(t, h, "d1")

	loc, err := h.engine.Upload(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "s3://games/d1", loc)
	assert.Equal(t, path, up.path)

	last, ok := h.recorder.Last(events.UploadComplete)
	require.True(t, ok)
	assert.Equal(t, events.Upload{DownloadID: "d1", Location: "s3://games/d1"}, last.Payload)
}

func TestUploadFailure(t *testing.T) {
	h := newHarness(t, idle(), engine.WithUploader(&fakeUploader{err: errors.New("denied")}))
	completedDownload(t, h, "d1")

	_, err := h.engine.Upload(context.Background(), "d1")
	require.Error(t, err)

	last, ok := h.recorder.Last(events.UploadError)
	require.True(t, ok)
	assert.Equal(t, events.Upload{DownloadID: "d1", Error: "denied"}, last.Payload)

	rec, _ := h.engine.Get("d1")
	assert.Equal(t, status.Completed, rec.Status, "upload failures do not touch the download")
}

func TestUploadWithoutUploader(t *testing.T) {
	h := newHarness(t, idle())
	completedDownload(t, h, "d1")

	_, err := h.engine.Upload(context.Background(), "d1")
	assert.True(t, errors.IsInvalid(err))
}
