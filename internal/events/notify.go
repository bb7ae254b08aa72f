package events

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/chanomhub/gamedl/internal/errors"
	"github.com/chanomhub/gamedl/internal/logger"
)

// Notification titles.
const (
	TitleComplete         = "Download Complete"
	TitleFailed           = "Download Failed"
	TitleCancelled        = "Download Cancelled"
	TitleError            = "Download Error"
	TitleExtraction       = "Extraction Complete"
	TitleExtractionFailed = "Extraction Failed"
	TitleUploadComplete   = "Upload Complete"
	TitleUploadFailed     = "Upload Failed"
)

// ErrThrottled is returned when a notification was dropped by the rate limit.
var ErrThrottled = errors.New("notification rate limit exceeded")

// Notifier shows a user-facing notification.
type Notifier interface {
	Notify(title, body string) error
}

// EmitterNotifier forwards notifications as "notification" events.
type EmitterNotifier struct {
	Emitter Emitter
}

func (n EmitterNotifier) Notify(title, body string) error {
	return n.Emitter.Emit(Notification, Message{Title: title, Body: body})
}

// Throttled drops notifications beyond perMinute, allowing bursts of burst.
type Throttled struct {
	next    Notifier
	limiter *rate.Limiter
}

// NewThrottled wraps next. A non-positive perMinute disables the limit.
func NewThrottled(next Notifier, perMinute, burst int) *Throttled {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if burst < 1 {
		burst = 1
	}

	return &Throttled{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (t *Throttled) Notify(title, body string) error {
	if !t.limiter.Allow() {
		logger.Warnf("Dropping notification %q: %v", title, ErrThrottled)
		return ErrThrottled
	}

	return t.next.Notify(title, body)
}

type silent struct{}

func (silent) Notify(string, string) error { return nil }

// Silent drops every notification.
var Silent Notifier = silent{}
