package status

// Status is the lifecycle state of one download attempt.
type Status string

const (
	Starting    Status = "starting"
	Downloading Status = "downloading"
	Completed   Status = "completed"
	Failed      Status = "failed"
	Cancelled   Status = "cancelled"
	Unknown     Status = "unknown"
)

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are expected.
func (s Status) IsTerminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// IsActive reports whether a helper process is expected to be working on it.
func (s Status) IsActive() bool {
	return s == Starting || s == Downloading
}

// Extraction is the state of the post-download archive extraction.
type Extraction string

const (
	ExtractionIdle       Extraction = "idle"
	ExtractionExtracting Extraction = "extracting"
	ExtractionCompleted  Extraction = "completed"
	ExtractionFailed     Extraction = "failed"
)

func (e Extraction) String() string {
	if e == "" {
		return string(ExtractionIdle)
	}
	return string(e)
}
