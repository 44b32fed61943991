// Package audio inspects downloaded audio files before they reach the
// inference pipeline.
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
)

// ProbeDuration reports the clip length for containers we can parse locally.
// Telegram reports durations for voice notes and audio messages, so this is
// only needed for plain document uploads; unknown formats return zero rather
// than an error.
func ProbeDuration(path string) (time.Duration, error) {
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return 0, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("audio: open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	d, err := dec.Duration()
	if err != nil {
		return 0, fmt.Errorf("audio: read wav duration: %w", err)
	}
	return d, nil
}
