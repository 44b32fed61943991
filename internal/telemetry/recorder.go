// Package telemetry tracks per-request and process-wide transcription
// counters for the operator log.
package telemetry

import (
	"log/slog"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

// Recorder tracks bot-level telemetry.
type Recorder struct {
	log *slog.Logger

	totalRequests      atomic.Uint64
	activeRequests     atomic.Int64
	totalSuccess       atomic.Uint64
	totalRetries       atomic.Uint64
	totalTimeouts      atomic.Uint64
	totalEmptyResults  atomic.Uint64
	totalFailures      atomic.Uint64
	totalLowConfidence atomic.Uint64
}

// Snapshot captures cumulative metrics recorded so far.
type Snapshot struct {
	TotalRequests      uint64
	ActiveRequests     int64
	TotalSuccess       uint64
	TotalRetries       uint64
	TotalTimeouts      uint64
	TotalEmptyResults  uint64
	TotalFailures      uint64
	TotalLowConfidence uint64
}

// NewRecorder constructs a Recorder using the provided logger.
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		log: logger.With("component", "telemetry.Recorder"),
	}
}

// Snapshot returns an immutable view of the recorder totals.
func (r *Recorder) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	return Snapshot{
		TotalRequests:      r.totalRequests.Load(),
		ActiveRequests:     r.activeRequests.Load(),
		TotalSuccess:       r.totalSuccess.Load(),
		TotalRetries:       r.totalRetries.Load(),
		TotalTimeouts:      r.totalTimeouts.Load(),
		TotalEmptyResults:  r.totalEmptyResults.Load(),
		TotalFailures:      r.totalFailures.Load(),
		TotalLowConfidence: r.totalLowConfidence.Load(),
	}
}

// RequestMetrics accumulates statistics for a single transcription request.
type RequestMetrics struct {
	recorder *Recorder
	log      *slog.Logger

	requestID string
	started   time.Time
	closed    atomic.Bool
}

// StartRequest initialises a RequestMetrics instance bound to the recorder.
func (r *Recorder) StartRequest(requestID string) *RequestMetrics {
	if r == nil {
		return nil
	}

	r.totalRequests.Add(1)
	r.activeRequests.Add(1)

	return &RequestMetrics{
		recorder:  r,
		log:       r.log.With("request_id", requestID),
		requestID: requestID,
		started:   time.Now(),
	}
}

// Finish records the request outcome and logs a summary. The status and
// quality labels match the transcribe package's String values.
func (m *RequestMetrics) Finish(status, quality, text string, attempts int) {
	if m == nil {
		return
	}
	if !m.closed.CompareAndSwap(false, true) {
		return
	}

	defer m.recorder.activeRequests.Add(-1)

	if attempts > 1 {
		m.recorder.totalRetries.Add(1)
	}
	switch status {
	case "success":
		m.recorder.totalSuccess.Add(1)
		if quality == "low_confidence" {
			m.recorder.totalLowConfidence.Add(1)
		}
	case "timeout":
		m.recorder.totalTimeouts.Add(1)
	case "empty_result":
		m.recorder.totalEmptyResults.Add(1)
	default:
		m.recorder.totalFailures.Add(1)
	}

	duration := time.Since(m.started)
	args := []any{
		"status", status,
		"quality", quality,
		"attempts", attempts,
		"duration_ms", duration.Milliseconds(),
		"chars", len(text),
		"runes", utf8.RuneCountInString(text),
	}

	if status == "success" || status == "empty_result" {
		m.log.Info("request completed", args...)
		return
	}
	m.log.Warn("request failed", args...)
}
