package engine

import (
	"fmt"

	"github.com/chanomhub/gamedl/internal/cancel"
	"github.com/chanomhub/gamedl/internal/download"
	"github.com/chanomhub/gamedl/internal/errors"
	"github.com/chanomhub/gamedl/internal/events"
	"github.com/chanomhub/gamedl/internal/helper"
	"github.com/chanomhub/gamedl/internal/logger"
)

// HandleEvent applies one helper status event. The new state is persisted
// before any outward event is emitted. Events without a download id raise a
// notification and are rejected; events for finished downloads are ignored.
func (e *Engine) HandleEvent(ev helper.Event) error {
	if ev.DownloadID == "" {
		logger.Warnf("Event missing downloadId: %+v", ev)
		e.notify(events.TitleError, "A download failed: missing download identifier")
		return errors.NewInvalidError("handle event", "", errors.ErrMissingID)
	}

	var t transition
	_, _, err := e.registry.Apply(ev.DownloadID, func(rec *download.Record, found bool) bool {
		t = reconcile(*rec, found, ev, e.config.Provider, e.now())
		if t.commit {
			*rec = t.record
		}
		return t.commit
	})
	if err != nil && !errors.IsPersistence(err) {
		return err
	}

	if !t.commit {
		logger.Debugf("Ignoring %s event for %s: %s", ev.Status, ev.DownloadID, t.reason)
		return nil
	}

	if t.created {
		logger.Infof("Registered download %s from helper event (%s)", ev.DownloadID, t.record.Status)
	}

	for _, env := range t.emits {
		e.publish(env.Event, env.Payload)
	}

	if t.notify != nil {
		e.notify(t.notify.Title, t.notify.Body)
	}

	e.promote(t.record)

	return err
}

// watch forwards the events of one helper process until it exits and makes
// sure a helper that dies early leaves its download failed.
func (e *Engine) watch(id string, h *cancel.Handle, proc *helper.Process) {
	for ev := range proc.Events() {
		if h.IsCancelled() {
			logger.Debugf("Dropping %s event for cancelled download %s", ev.Status, id)
			continue
		}

		if err := e.HandleEvent(ev); err != nil {
			logger.Errorf("Error processing helper event for %s: %v", id, err)
		}
	}

	exit := proc.Wait()
	logger.Debugf("Helper for %s terminated with code %d", id, exit.Code)

	if h.IsCancelled() {
		return
	}

	if e.ctx.Err() != nil {
		logger.Infof("Helper for %s stopped by shutdown", id)
		return
	}

	rec, ok := e.registry.Get(id)
	if !ok || rec.Status.IsTerminal() {
		return
	}

	var msg string
	switch {
	case exit.Code != 0:
		msg = fmt.Sprintf("helper process terminated unexpectedly with code %d", exit.Code)
	case exit.Err != nil:
		msg = fmt.Sprintf("helper process error: %v", exit.Err)
	default:
		logger.Warnf("Helper for %s exited cleanly while download is %s", id, rec.Status)
		return
	}

	if err := e.HandleEvent(helper.ErrorEvent(id, msg)); err != nil {
		logger.Errorf("Failed to record helper exit for %s: %v", id, err)
	}
}
