// Package engine wraps the Whisper inference backends behind a single
// interface. The native backend (whisper.cpp via cgo) keeps per-call decode
// state that is not safe to share, so callers must never invoke Transcribe
// concurrently on the same engine; the transcribe package enforces this.
package engine

import "context"

// Engine exposes file-based transcription backed by whisper.cpp or a stub
// implementation.
type Engine interface {
	// Transcribe decodes the audio file at path and returns the recognised
	// text together with per-segment confidence data. The context aborts an
	// in-flight inference when cancelled.
	Transcribe(ctx context.Context, path string, opts Options) (Result, error)
	// Reset drops any cached decode state. Called after a transient engine
	// fault before the attempt is repeated.
	Reset()
	// Close releases underlying resources.
	Close() error
}

// Options configures decoding for a single inference attempt. Values are
// derived once per attempt and never mutated; a retry builds a fresh Options
// value.
type Options struct {
	// Language is an ISO-639-1 code, or "auto" for detection.
	Language string
	// InitialPrompt biases the decoder towards the expected language.
	InitialPrompt string
	Temperature   float32
	// BestOf is the number of decoding candidates when sampling.
	BestOf int
	// BeamSize enables beam search when greater than one.
	BeamSize int
	// NoSpeechThreshold is the probability above which a segment is treated
	// as silence.
	NoSpeechThreshold float32
	// CompressionRatioThreshold rejects degenerate repetitive output.
	CompressionRatioThreshold float32
}

// Result represents the outcome of one inference attempt.
type Result struct {
	Text string
	// Language is the detected (or forced) ISO-639-1 code.
	Language string
	// SegmentLogProbs holds the average log-probability of each segment.
	SegmentLogProbs []float64
	// NoSpeechProb is the engine's confidence that the audio contains no
	// speech.
	NoSpeechProb float64
	Segments     int
}
