package engine

import (
	"fmt"
	"time"

	"github.com/chanomhub/gamedl/internal/download"
	"github.com/chanomhub/gamedl/internal/events"
	"github.com/chanomhub/gamedl/internal/helper"
	"github.com/chanomhub/gamedl/internal/status"
)

// transition is the outcome of applying one helper event to one record.
type transition struct {
	record  download.Record
	commit  bool
	created bool
	emits   []events.Envelope
	notify  *events.Message
	reason  string // why nothing was committed
}

func (t *transition) emit(name string, payload any) {
	t.emits = append(t.emits, events.Envelope{Event: name, Payload: payload})
}

// reconcile computes the next state of cur for ev. Records already in a
// terminal state never change.
func reconcile(cur download.Record, found bool, ev helper.Event, provider string, now time.Time) transition {
	id := ev.DownloadID
	t := transition{record: cur}

	if found && cur.Status.IsTerminal() {
		t.reason = fmt.Sprintf("download is already %s", cur.Status)
		return t
	}

	rec := cur
	if !found {
		switch {
		case ev.DownloadStarted:
			rec = download.New(id, "", filenameOr(ev.Filename), provider)
			rec.Status = status.Downloading
			rec.Progress = startedProgress
			t.created = true
			t.emit(events.DownloadProgress, events.Progress{ID: id, Progress: startedProgress, Filename: rec.Filename})
		case synthesizable(ev.Status):
			rec = download.New(id, "", filenameOr(ev.Filename), provider)
			t.created = true
		default:
			t.reason = fmt.Sprintf("no download found for status %q", ev.Status)
			return t
		}
	}

	switch ev.Status {
	case helper.StatusSuccess:
		if ev.Path != "" {
			if ev.Filename != "" {
				rec.Filename = ev.Filename
			}
			rec.Complete(ev.Path, now)
			t.emit(events.DownloadComplete, events.Complete{ID: id, Filename: rec.Filename, Path: ev.Path})
			t.notify = &events.Message{Title: events.TitleComplete, Body: "Downloaded: " + rec.Filename}
			break
		}

		rec.Status = status.Downloading
		if rec.Progress < confirmedProgress {
			rec.Progress = confirmedProgress
		}
		t.emit(events.DownloadProgress, events.Progress{ID: id, Progress: rec.Progress})

	case helper.StatusError:
		msg := ev.Message
		if msg == "" {
			msg = "helper reported an error"
		}
		rec.Fail(msg)
		t.emit(events.DownloadError, events.Error{ID: id, Error: msg})
		t.notify = &events.Message{Title: events.TitleFailed, Body: "Failed to download: " + rec.Filename}

	case helper.StatusProgress:
		p := ev.ProgressValue(rec.Progress)
		switch {
		case ev.Progress != nil && (t.created || p > rec.Progress):
			rec.Progress = p
			rec.Status = status.Downloading
			t.emit(events.DownloadProgress, events.Progress{ID: id, Progress: p})
		case t.created:
			rec.Status = status.Downloading
		case ev.Progress == nil:
			t.reason = "progress event without a value"
			return t
		default:
			t.reason = fmt.Sprintf("stale progress %.1f <= %.1f", p, rec.Progress)
			return t
		}

	default:
		rec.Status = status.Unknown
		rec.Error = "Unknown status: " + ev.Status
		t.emit(events.DownloadError, events.Error{ID: id, Error: rec.Error})
	}

	t.record = rec
	t.commit = true
	return t
}

func synthesizable(s string) bool {
	return s == helper.StatusSuccess || s == helper.StatusError || s == helper.StatusProgress
}

func filenameOr(name string) string {
	if name == "" {
		return download.UnknownFilename
	}
	return name
}
