package transcribe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/talkscribe/talkscribe/internal/engine"
	"github.com/talkscribe/talkscribe/internal/telemetry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeAudioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.ogg")
	if err := os.WriteFile(path, []byte("not really opus"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func newTestService(t *testing.T, open engine.OpenFunc) (*Service, *telemetry.Recorder) {
	t.Helper()
	logger := discardLogger()
	recorder := telemetry.NewRecorder(logger)
	provider := engine.NewProvider(open, logger)
	return NewService(DefaultPolicy(), provider, recorder, 1, logger), recorder
}

func TestServiceSuccess(t *testing.T) {
	eng := &scriptedEngine{script: []scriptedCall{
		{res: engine.Result{Text: "  hello world  ", Language: "en", SegmentLogProbs: []float64{-0.2}, NoSpeechProb: 0.1}},
	}}
	svc, recorder := newTestService(t, func(ctx context.Context) (engine.Engine, error) {
		return eng, nil
	})

	outcome := svc.Transcribe(context.Background(), Request{
		Path:     writeAudioFixture(t),
		Duration: 10 * time.Second,
		Mode:     ModeBalanced,
	})
	if outcome.Status != StatusSuccess {
		t.Fatalf("expected success, got %v (%s)", outcome.Status, outcome.Diagnostic)
	}
	if outcome.Text != "hello world" {
		t.Fatalf("expected trimmed text, got %q", outcome.Text)
	}
	if outcome.Language != "en" {
		t.Fatalf("expected language en, got %q", outcome.Language)
	}
	if outcome.Quality != QualityNormal {
		t.Fatalf("expected normal quality, got %v", outcome.Quality)
	}
	if outcome.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", outcome.Attempts)
	}
	if outcome.RequestID == "" {
		t.Fatalf("expected a request id")
	}

	snapshot := recorder.Snapshot()
	if snapshot.TotalRequests != 1 || snapshot.TotalSuccess != 1 {
		t.Fatalf("unexpected telemetry: %+v", snapshot)
	}
}

func TestServiceLowConfidenceResult(t *testing.T) {
	eng := &scriptedEngine{script: []scriptedCall{
		{res: engine.Result{Text: "barely audible", Language: "en", SegmentLogProbs: []float64{-1.5}, NoSpeechProb: 0.1}},
	}}
	svc, _ := newTestService(t, func(ctx context.Context) (engine.Engine, error) {
		return eng, nil
	})

	outcome := svc.Transcribe(context.Background(), Request{Path: writeAudioFixture(t), Duration: 10 * time.Second})
	if outcome.Status != StatusSuccess {
		t.Fatalf("expected success, got %v", outcome.Status)
	}
	if outcome.Quality != QualityLowConfidence {
		t.Fatalf("expected low confidence flag, got %v", outcome.Quality)
	}
}

func TestServiceEmptyResult(t *testing.T) {
	// Both the initial attempt and the relaxed retry come back empty.
	eng := &scriptedEngine{script: []scriptedCall{
		{res: engine.Result{Text: "", NoSpeechProb: 0.4}},
		{res: engine.Result{Text: "   ", NoSpeechProb: 0.4}},
	}}
	svc, recorder := newTestService(t, func(ctx context.Context) (engine.Engine, error) {
		return eng, nil
	})

	outcome := svc.Transcribe(context.Background(), Request{Path: writeAudioFixture(t), Duration: 10 * time.Second})
	if outcome.Status != StatusEmptyResult {
		t.Fatalf("expected empty result, got %v", outcome.Status)
	}
	if outcome.Text != "" {
		t.Fatalf("expected no text, got %q", outcome.Text)
	}
	if outcome.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", outcome.Attempts)
	}
	if outcome.Diagnostic == "" {
		t.Fatalf("expected a user-facing diagnostic")
	}

	if snapshot := recorder.Snapshot(); snapshot.TotalEmptyResults != 1 {
		t.Fatalf("unexpected telemetry: %+v", snapshot)
	}
}

func TestServiceInvalidInputFailsFast(t *testing.T) {
	var opened atomic.Bool
	svc, _ := newTestService(t, func(ctx context.Context) (engine.Engine, error) {
		opened.Store(true)
		return &scriptedEngine{}, nil
	})

	outcome := svc.Transcribe(context.Background(), Request{Path: filepath.Join(t.TempDir(), "missing.ogg")})
	if outcome.Status != StatusInternalError {
		t.Fatalf("expected internal error, got %v", outcome.Status)
	}
	if outcome.Diagnostic != diagInvalidInput {
		t.Fatalf("expected invalid input diagnostic, got %q", outcome.Diagnostic)
	}
	if opened.Load() {
		t.Fatalf("invalid input must not trigger an engine load")
	}
}

func TestServiceEngineUnavailableUntilLoadSucceeds(t *testing.T) {
	eng := &scriptedEngine{script: []scriptedCall{
		{res: engine.Result{Text: "finally", Language: "en", SegmentLogProbs: []float64{-0.2}}},
	}}
	var loadAttempts atomic.Int32
	svc, recorder := newTestService(t, func(ctx context.Context) (engine.Engine, error) {
		if loadAttempts.Add(1) <= 2 {
			return nil, errors.New("model download failed")
		}
		return eng, nil
	})

	path := writeAudioFixture(t)
	for i := 0; i < 2; i++ {
		outcome := svc.Transcribe(context.Background(), Request{Path: path, Duration: 10 * time.Second})
		if outcome.Status != StatusEngineUnavailable {
			t.Fatalf("request %d: expected engine unavailable, got %v", i+1, outcome.Status)
		}
		if outcome.Diagnostic != diagEngineUnavailable {
			t.Fatalf("request %d: unexpected diagnostic %q", i+1, outcome.Diagnostic)
		}
	}

	outcome := svc.Transcribe(context.Background(), Request{Path: path, Duration: 10 * time.Second})
	if outcome.Status != StatusSuccess {
		t.Fatalf("expected success once the engine loads, got %v (%s)", outcome.Status, outcome.Diagnostic)
	}
	if got := loadAttempts.Load(); got != 3 {
		t.Fatalf("expected a fresh load attempt per request, got %d", got)
	}

	snapshot := recorder.Snapshot()
	if snapshot.TotalFailures != 2 || snapshot.TotalSuccess != 1 {
		t.Fatalf("unexpected telemetry: %+v", snapshot)
	}
}

func TestServiceRetryRecoversText(t *testing.T) {
	// Initial attempt hears nothing; the relaxed retry recovers speech.
	eng := &scriptedEngine{script: []scriptedCall{
		{res: engine.Result{Text: "", NoSpeechProb: 0.4}},
		{res: engine.Result{Text: "hello", Language: "en", SegmentLogProbs: []float64{-0.2}, NoSpeechProb: 0.1}},
	}}
	svc, recorder := newTestService(t, func(ctx context.Context) (engine.Engine, error) {
		return eng, nil
	})

	outcome := svc.Transcribe(context.Background(), Request{
		Path:     writeAudioFixture(t),
		Duration: 3 * time.Second,
		Mode:     ModeBalanced,
	})
	if outcome.Status != StatusSuccess {
		t.Fatalf("expected success after retry, got %v (%s)", outcome.Status, outcome.Diagnostic)
	}
	if outcome.Text != "hello" {
		t.Fatalf("expected retry transcript, got %q", outcome.Text)
	}
	if outcome.Quality != QualityNormal {
		t.Fatalf("expected normal quality, got %v", outcome.Quality)
	}
	if outcome.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", outcome.Attempts)
	}
	if snapshot := recorder.Snapshot(); snapshot.TotalRetries != 1 {
		t.Fatalf("expected one retry recorded, got %+v", snapshot)
	}
}

// intervalEngine records the wall-clock window of every call so tests can
// prove calls never overlap.
type intervalEngine struct {
	mu        sync.Mutex
	intervals [][2]time.Time
}

func (e *intervalEngine) Transcribe(ctx context.Context, path string, opts engine.Options) (engine.Result, error) {
	start := time.Now()
	time.Sleep(30 * time.Millisecond)
	end := time.Now()
	e.mu.Lock()
	e.intervals = append(e.intervals, [2]time.Time{start, end})
	e.mu.Unlock()
	return engine.Result{Text: "ok", Language: "en", SegmentLogProbs: []float64{-0.2}}, nil
}

func (e *intervalEngine) Reset()       {}
func (e *intervalEngine) Close() error { return nil }

func TestServiceSerialisesInference(t *testing.T) {
	eng := &intervalEngine{}
	svc, _ := newTestService(t, func(ctx context.Context) (engine.Engine, error) {
		return eng, nil
	})
	path := writeAudioFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome := svc.Transcribe(context.Background(), Request{Path: path, Duration: 5 * time.Second})
			if outcome.Status != StatusSuccess {
				t.Errorf("expected success, got %v", outcome.Status)
			}
		}()
	}
	wg.Wait()

	eng.mu.Lock()
	defer eng.mu.Unlock()
	if len(eng.intervals) != 3 {
		t.Fatalf("expected 3 engine calls, got %d", len(eng.intervals))
	}
	sort.Slice(eng.intervals, func(i, j int) bool {
		return eng.intervals[i][0].Before(eng.intervals[j][0])
	})
	for i := 1; i < len(eng.intervals); i++ {
		if eng.intervals[i][0].Before(eng.intervals[i-1][1]) {
			t.Fatalf("call %d started at %v before call %d ended at %v",
				i, eng.intervals[i][0], i-1, eng.intervals[i-1][1])
		}
	}
}

func TestServiceTimeoutOutcome(t *testing.T) {
	eng := &scriptedEngine{blockOn: make(chan struct{})}
	defer close(eng.blockOn)

	logger := discardLogger()
	provider := engine.NewProvider(func(ctx context.Context) (engine.Engine, error) {
		return eng, nil
	}, logger)

	policy := DefaultPolicy()
	policy.TimeoutBuckets = []TimeoutBucket{{MaxDuration: 120 * time.Second, Budget: 30 * time.Millisecond}}
	svc := NewService(policy, provider, telemetry.NewRecorder(logger), 1, logger)

	outcome := svc.Transcribe(context.Background(), Request{Path: writeAudioFixture(t), Duration: 10 * time.Second})
	if outcome.Status != StatusTimeout {
		t.Fatalf("expected timeout, got %v (%s)", outcome.Status, outcome.Diagnostic)
	}
	// A sub-minute budget still reads as a whole number of minutes.
	if !strings.Contains(outcome.Diagnostic, "1 minutes") {
		t.Fatalf("expected rounded-up minutes in diagnostic, got %q", outcome.Diagnostic)
	}
}

func TestTimeoutDiagnosticRoundsUp(t *testing.T) {
	svc, _ := newTestService(t, func(ctx context.Context) (engine.Engine, error) {
		return &scriptedEngine{}, nil
	})

	cases := []struct {
		budget time.Duration
		want   string
	}{
		{30 * time.Second, "1 minutes"},
		{90 * time.Second, "2 minutes"},
		{5 * time.Minute, "5 minutes"},
	}
	for _, tc := range cases {
		err := &TimeoutError{Budget: tc.budget, Elapsed: tc.budget}
		outcome := svc.failureOutcome(discardLogger(), err, tc.budget, 1)
		if outcome.Status != StatusTimeout {
			t.Fatalf("budget %v: expected timeout, got %v", tc.budget, outcome.Status)
		}
		if !strings.Contains(outcome.Diagnostic, tc.want) {
			t.Fatalf("budget %v: expected %q in diagnostic, got %q", tc.budget, tc.want, outcome.Diagnostic)
		}
	}
}

func TestServiceCancelledMidInference(t *testing.T) {
	eng := &scriptedEngine{blockOn: make(chan struct{})}
	defer close(eng.blockOn)

	svc, _ := newTestService(t, func(ctx context.Context) (engine.Engine, error) {
		return eng, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	outcome := svc.Transcribe(ctx, Request{Path: writeAudioFixture(t), Duration: 10 * time.Second})
	if outcome.Status != StatusInternalError {
		t.Fatalf("expected internal error on cancellation, got %v", outcome.Status)
	}
	if outcome.Diagnostic != diagCancelled {
		t.Fatalf("expected cancellation diagnostic, got %q", outcome.Diagnostic)
	}
}
