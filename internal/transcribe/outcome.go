package transcribe

import "time"

// Status classifies how a transcription request ended.
type Status int

const (
	StatusSuccess Status = iota
	StatusEmptyResult
	StatusTimeout
	StatusEngineUnavailable
	StatusInternalError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusEmptyResult:
		return "empty_result"
	case StatusTimeout:
		return "timeout"
	case StatusEngineUnavailable:
		return "engine_unavailable"
	default:
		return "internal_error"
	}
}

// Quality flags results the caller should present with a soft warning.
type Quality int

const (
	QualityNormal Quality = iota
	QualityLowConfidence
)

func (q Quality) String() string {
	if q == QualityLowConfidence {
		return "low_confidence"
	}
	return "normal"
}

// Outcome is the sole value returned to the caller. Text is present only on
// Success; Diagnostic carries a user-safe message for every other status.
type Outcome struct {
	Status   Status
	Text     string
	Language string
	Quality  Quality
	// Diagnostic never contains internal error detail; that goes to the
	// operator log.
	Diagnostic string
	RequestID  string
	Attempts   int
	Elapsed    time.Duration
}
