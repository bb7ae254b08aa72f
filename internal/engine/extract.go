package engine

import (
	"context"

	"github.com/chanomhub/gamedl/internal/download"
	"github.com/chanomhub/gamedl/internal/errors"
	"github.com/chanomhub/gamedl/internal/events"
	"github.com/chanomhub/gamedl/internal/logger"
	"github.com/chanomhub/gamedl/internal/status"
)

// ExtractionStarted marks id as extracting. Unknown ids only get the event.
func (e *Engine) ExtractionStarted(id string) error {
	_, err := e.registry.Update(id, func(rec *download.Record) {
		rec.ExtractionStatus = status.ExtractionExtracting
		rec.ExtractionProgress = 0
	})

	e.publish(events.ExtractionProgress, events.Extraction{
		DownloadID: id,
		Status:     status.ExtractionExtracting.String(),
		Progress:   0,
	})

	return err
}

// ExtractionProgress reports intermediate progress. It is not persisted.
func (e *Engine) ExtractionProgress(id string, percent float64) {
	e.publish(events.ExtractionProgress, events.Extraction{
		DownloadID: id,
		Status:     status.ExtractionExtracting.String(),
		Progress:   percent,
	})
}

// ExtractionCompleted records that id was unpacked into outputDir.
func (e *Engine) ExtractionCompleted(id, outputDir string) error {
	rec, found, err := e.registry.Apply(id, func(rec *download.Record, found bool) bool {
		if !found {
			return false
		}
		rec.Extracted = true
		rec.ExtractedPath = outputDir
		rec.ExtractionStatus = status.ExtractionCompleted
		rec.ExtractionProgress = 100
		return true
	})
	if err != nil && !errors.IsPersistence(err) {
		return err
	}

	e.publish(events.ExtractionProgress, events.Extraction{
		DownloadID: id,
		Status:     status.ExtractionCompleted.String(),
		Progress:   100,
	})

	name := id
	if found {
		name = rec.Filename
		e.promote(rec)
	}
	e.notify(events.TitleExtraction, "Extracted: "+name)

	return err
}

// ExtractionFailed records a failed extraction of id.
func (e *Engine) ExtractionFailed(id string, cause error) error {
	msg := "extraction failed"
	if cause != nil {
		msg = cause.Error()
	}

	_, err := e.registry.Update(id, func(rec *download.Record) {
		rec.ExtractionStatus = status.ExtractionFailed
		rec.ExtractionProgress = 0
	})

	e.publish(events.ExtractionProgress, events.Extraction{
		DownloadID: id,
		Status:     status.ExtractionFailed.String(),
		Progress:   0,
		Error:      msg,
	})
	e.notify(events.TitleExtractionFailed, msg)

	return err
}

// Extract unpacks the completed download id with the configured extractor.
// outputDir defaults to the download path with the extraction suffix.
func (e *Engine) Extract(ctx context.Context, id, outputDir string) (download.Record, error) {
	if e.extractor == nil {
		return download.Record{}, errors.NewInvalidError("extract", id, errors.New("no extractor configured"))
	}

	rec, err := e.completed("extract", id)
	if err != nil {
		return download.Record{}, err
	}

	if outputDir == "" {
		outputDir = rec.Path + download.ExtractedSuffix
	}

	if err := e.ExtractionStarted(id); err != nil {
		logger.Warnf("Failed to record extraction start for %s: %v", id, err)
	}

	err = e.extractor.Extract(ctx, rec.Path, outputDir, func(percent float64) {
		e.ExtractionProgress(id, percent)
	})
	if err != nil {
		logger.Errorf("Extraction of %s failed: %v", id, err)
		if ferr := e.ExtractionFailed(id, err); ferr != nil {
			logger.Warnf("Failed to record extraction failure for %s: %v", id, ferr)
		}

		failed, _ := e.registry.Get(id)
		return failed, errors.NewIOError("extract", rec.Path, err)
	}

	err = e.ExtractionCompleted(id, outputDir)
	done, _ := e.registry.Get(id)
	return done, err
}

// Upload copies the completed download id to the configured uploader.
func (e *Engine) Upload(ctx context.Context, id string) (string, error) {
	if e.uploader == nil {
		return "", errors.NewInvalidError("upload", id, errors.New("no uploader configured"))
	}

	rec, err := e.completed("upload", id)
	if err != nil {
		return "", err
	}

	location, err := e.uploader.Upload(ctx, id, rec.Path)
	if err != nil {
		logger.Errorf("Upload of %s failed: %v", id, err)
		e.publish(events.UploadError, events.Upload{DownloadID: id, Error: err.Error()})
		e.notify(events.TitleUploadFailed, "Failed to upload: "+rec.Filename)
		return "", err
	}

	e.publish(events.UploadComplete, events.Upload{DownloadID: id, Location: location})
	e.notify(events.TitleUploadComplete, "Uploaded: "+rec.Filename)

	return location, nil
}

func (e *Engine) completed(op, id string) (download.Record, error) {
	rec, ok := e.registry.Get(id)
	if !ok {
		return download.Record{}, errors.NewNotFoundError(op, id)
	}

	if rec.Status != status.Completed || rec.Path == "" {
		return download.Record{}, errors.NewInvalidError(op, id, errors.New("download is not completed"))
	}

	return rec, nil
}
