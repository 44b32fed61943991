package transcribe

import "time"

// Mode is the user-selectable speed/accuracy trade-off.
type Mode string

const (
	ModeFast     Mode = "fast"
	ModeBalanced Mode = "balanced"
	ModeAccurate Mode = "accurate"
)

// ParseMode normalises a stored mode string; unknown values fall back to
// balanced.
func ParseMode(value string) Mode {
	switch Mode(value) {
	case ModeFast, ModeAccurate:
		return Mode(value)
	default:
		return ModeBalanced
	}
}

// Request describes one transcription job. The caller owns the file at Path
// and deletes it after the call returns; the request itself is never mutated.
type Request struct {
	// Path is the local audio file.
	Path string
	// Duration is the clip length when the platform reported one; zero means
	// unknown.
	Duration time.Duration
	// Language is an ISO-639-1 code, or empty/"auto" for detection.
	Language string
	Mode     Mode
}
