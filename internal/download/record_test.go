package download

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanomhub/gamedl/internal/status"
)

func TestNewRecord(t *testing.T) {
	r := New("d1", "http://x/file.zip", "file.zip", "webview2")

	assert.Equal(t, status.Starting, r.Status)
	assert.Equal(t, status.ExtractionIdle, r.ExtractionStatus)
	assert.Zero(t, r.Progress)
	assert.Nil(t, r.CompletedAt)
}

func TestComplete(t *testing.T) {
	r := New("d1", "", "file.zip", "")
	r.Error = "stale"
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	r.Complete("/tmp/file.zip", now)

	assert.Equal(t, status.Completed, r.Status)
	assert.Equal(t, 100.0, r.Progress)
	assert.Equal(t, "/tmp/file.zip", r.Path)
	assert.Empty(t, r.Error)
	require.NotNil(t, r.CompletedAt)
	assert.True(t, r.CompletedAt.Equal(now))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	at := time.Now()
	tests := []struct {
		name  string
		in    Record
		check func(t *testing.T, r Record)
	}{
		{
			name: "clamps progress",
			in:   Record{Progress: 140, ExtractionProgress: -3, Status: status.Downloading},
			check: func(t *testing.T, r Record) {
				assert.Equal(t, 100.0, r.Progress)
				assert.Equal(t, 0.0, r.ExtractionProgress)
			},
		},
		{
			name: "extracted requires a path",
			in:   Record{Extracted: true, Status: status.Completed},
			check: func(t *testing.T, r Record) {
				assert.False(t, r.Extracted)
			},
		},
		{
			name: "completion time only on completed",
			in:   Record{Status: status.Failed, CompletedAt: &at},
			check: func(t *testing.T, r Record) {
				assert.Nil(t, r.CompletedAt)
			},
		},
		{
			name: "defaults extraction status",
			in:   Record{Status: status.Starting},
			check: func(t *testing.T, r Record) {
				assert.Equal(t, status.ExtractionIdle, r.ExtractionStatus)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := tt.in
			r.Normalize()
			tt.check(t, r)
		})
	}
}

func TestCloneDetachesTimestamp(t *testing.T) {
	r := New("d1", "", "a", "")
	r.Complete("/a", time.Now())

	c := r.Clone()
	*c.CompletedAt = c.CompletedAt.Add(time.Hour)

	assert.NotEqual(t, *r.CompletedAt, *c.CompletedAt)
}

func TestDecodesOriginalFileLayout(t *testing.T) {
	raw := `{
		"id": "d9",
		"filename": "game.zip",
		"url": "",
		"progress": 100.0,
		"status": "completed",
		"path": "/games/game.zip",
		"error": null,
		"provider": "webview2",
		"downloaded_at": "2025-03-01T10:00:00+00:00",
		"extracted": true,
		"extracted_path": "/games/game.zip_extracted",
		"extraction_status": "completed",
		"extraction_progress": 100.0
	}`

	var r Record
	require.NoError(t, json.Unmarshal([]byte(raw), &r))

	assert.Equal(t, status.Completed, r.Status)
	assert.Equal(t, "/games/game.zip", r.Path)
	assert.Empty(t, r.Error)
	require.NotNil(t, r.CompletedAt)
	assert.True(t, r.Extracted)
	assert.Equal(t, status.ExtractionCompleted, r.ExtractionStatus)
}
