// Package events carries state transitions out to the presentation layer.
// Events are a side channel; the registry stays authoritative.
package events

import (
	"encoding/json"
	"io"
	"sync"
)

// Outward event names.
const (
	DownloadProgress   = "download-progress"
	DownloadComplete   = "download-complete"
	DownloadError      = "download-error"
	DownloadCancelled  = "download-cancelled"
	ExtractionProgress = "extraction-progress"
	UploadComplete     = "upload-complete"
	UploadError        = "upload-error"
	Notification       = "notification"
)

type Progress struct {
	ID       string  `json:"id"`
	Progress float64 `json:"progress"`
	Filename string  `json:"filename,omitempty"`
}

type Complete struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

type Error struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type Cancelled struct {
	ID string `json:"id"`
}

type Extraction struct {
	DownloadID string  `json:"downloadId"`
	Status     string  `json:"status"`
	Progress   float64 `json:"progress"`
	Error      string  `json:"error,omitempty"`
}

type Upload struct {
	DownloadID string `json:"downloadId"`
	Location   string `json:"location,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Message is a user-facing notification.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Envelope is the wire form of one event.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Emitter delivers outward events.
type Emitter interface {
	Emit(name string, payload any) error
}

// JSONLines writes one JSON envelope per line. It is safe for concurrent use.
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(w)}
}

func (j *JSONLines) Emit(name string, payload any) error {
	return j.Encode(Envelope{Event: name, Payload: payload})
}

// Encode writes v as one line, serialized with the emitted events.
func (j *JSONLines) Encode(v any) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.enc.Encode(v)
}

type discard struct{}

func (discard) Emit(string, any) error { return nil }

// Discard drops every event.
var Discard Emitter = discard{}

// Recorder keeps every event and notification it receives.
type Recorder struct {
	mu       sync.Mutex
	events   []Envelope
	messages []Message
}

func (r *Recorder) Emit(name string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, Envelope{Event: name, Payload: payload})
	return nil
}

func (r *Recorder) Notify(title, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, Message{Title: title, Body: body})
	return nil
}

func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Envelope(nil), r.events...)
}

// Names returns the event names in delivery order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.events))
	for _, e := range r.events {
		names = append(names, e.Event)
	}
	return names
}

// Last returns the most recent event called name.
func (r *Recorder) Last(name string) (Envelope, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Event == name {
			return r.events[i], true
		}
	}
	return Envelope{}, false
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Message(nil), r.messages...)
}
