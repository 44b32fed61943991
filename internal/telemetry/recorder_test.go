package telemetry

import (
	"io"
	"log/slog"
	"testing"
)

func TestRecorderSnapshot(t *testing.T) {
	recorder := NewRecorder(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if snapshot := recorder.Snapshot(); snapshot.TotalRequests != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snapshot)
	}

	rm := recorder.StartRequest("req-1")
	if rm == nil {
		t.Fatalf("expected request metrics")
	}
	if snapshot := recorder.Snapshot(); snapshot.ActiveRequests != 1 {
		t.Fatalf("expected one active request, got %d", snapshot.ActiveRequests)
	}

	rm.Finish("success", "low_confidence", "привіт", 2)

	snapshot := recorder.Snapshot()
	if snapshot.TotalRequests != 1 {
		t.Fatalf("unexpected TotalRequests: %d", snapshot.TotalRequests)
	}
	if snapshot.TotalSuccess != 1 {
		t.Fatalf("unexpected TotalSuccess: %d", snapshot.TotalSuccess)
	}
	if snapshot.TotalLowConfidence != 1 {
		t.Fatalf("unexpected TotalLowConfidence: %d", snapshot.TotalLowConfidence)
	}
	if snapshot.TotalRetries != 1 {
		t.Fatalf("unexpected TotalRetries: %d", snapshot.TotalRetries)
	}
	if snapshot.ActiveRequests != 0 {
		t.Fatalf("expected zero active requests, got %d", snapshot.ActiveRequests)
	}

	// Finish is idempotent.
	rm.Finish("success", "normal", "привіт", 2)
	if snapshot2 := recorder.Snapshot(); snapshot2.TotalSuccess != 1 {
		t.Fatalf("snapshot changed unexpectedly: %+v", snapshot2)
	}
}

func TestRecorderStatusCounters(t *testing.T) {
	recorder := NewRecorder(slog.New(slog.NewTextHandler(io.Discard, nil)))

	recorder.StartRequest("a").Finish("timeout", "normal", "", 1)
	recorder.StartRequest("b").Finish("empty_result", "normal", "", 2)
	recorder.StartRequest("c").Finish("engine_unavailable", "normal", "", 0)
	recorder.StartRequest("d").Finish("internal_error", "normal", "", 1)

	snapshot := recorder.Snapshot()
	if snapshot.TotalTimeouts != 1 {
		t.Fatalf("unexpected TotalTimeouts: %d", snapshot.TotalTimeouts)
	}
	if snapshot.TotalEmptyResults != 1 {
		t.Fatalf("unexpected TotalEmptyResults: %d", snapshot.TotalEmptyResults)
	}
	if snapshot.TotalFailures != 2 {
		t.Fatalf("unexpected TotalFailures: %d", snapshot.TotalFailures)
	}
	if snapshot.TotalRetries != 1 {
		t.Fatalf("unexpected TotalRetries: %d", snapshot.TotalRetries)
	}
	if snapshot.ActiveRequests != 0 {
		t.Fatalf("expected zero active requests, got %d", snapshot.ActiveRequests)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var recorder *Recorder
	if snapshot := recorder.Snapshot(); snapshot.TotalRequests != 0 {
		t.Fatalf("expected zero snapshot from nil recorder")
	}
	rm := recorder.StartRequest("x")
	if rm != nil {
		t.Fatalf("expected nil metrics from nil recorder")
	}
	rm.Finish("success", "normal", "", 1)
}
