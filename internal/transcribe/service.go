// Package transcribe is the orchestration core: it validates a request,
// admits it through the inference gate, picks decoding parameters from the
// clip duration and the user's quality mode, supervises the attempt with a
// duration-scaled deadline and a bounded retry, and classifies the result.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/talkscribe/talkscribe/internal/engine"
	"github.com/talkscribe/talkscribe/internal/telemetry"
)

// User-facing diagnostics. Deliberately soft and free of technical detail;
// the full error always goes to the operator log.
const (
	diagInvalidInput      = "The audio file could not be read. Please try sending it again."
	diagEngineUnavailable = "Speech recognition is still warming up or unavailable. Please try again in a moment."
	diagEmptyResult       = "No speech was recognised in the audio. Try recording a bit louder or closer to the microphone."
	diagCancelled         = "The request was cancelled before it finished."
	diagInternal          = "Something went wrong while processing the audio. Please try again."
)

// Service sequences one transcription request end to end. It owns no global
// state: the engine provider, gate, and recorder are injected so tests can
// substitute doubles.
type Service struct {
	policy   Policy
	provider *engine.Provider
	gate     *Gate
	runner   *Runner
	metrics  *telemetry.Recorder
	log      *slog.Logger
}

// NewService builds the orchestrator. concurrency bounds simultaneous
// inference attempts; production uses 1 because the engine keeps
// attempt-scoped internal state.
func NewService(policy Policy, provider *engine.Provider, metrics *telemetry.Recorder, concurrency int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if provider == nil {
		panic("transcribe: engine provider must not be nil")
	}
	if metrics == nil {
		metrics = telemetry.NewRecorder(logger)
	}
	gate := NewGate(concurrency)
	return &Service{
		policy:   policy,
		provider: provider,
		gate:     gate,
		runner:   NewRunner(gate, policy, logger),
		metrics:  metrics,
		log:      logger.With("component", "transcribe.service"),
	}
}

// Transcribe runs one request to completion and always returns a typed
// outcome; no engine-level error escapes past this boundary.
func (s *Service) Transcribe(ctx context.Context, req Request) Outcome {
	requestID := uuid.NewString()
	log := s.log.With("request_id", requestID)
	rm := s.metrics.StartRequest(requestID)
	start := time.Now()

	outcome := s.run(ctx, log, req, requestID)
	outcome.RequestID = requestID
	outcome.Elapsed = time.Since(start)
	rm.Finish(outcome.Status.String(), outcome.Quality.String(), outcome.Text, outcome.Attempts)
	return outcome
}

func (s *Service) run(ctx context.Context, log *slog.Logger, req Request, requestID string) Outcome {
	// Invalid input must not consume a gate slot.
	if err := validateFile(req.Path); err != nil {
		log.Error("invalid audio file", "path", req.Path, "error", err)
		return Outcome{Status: StatusInternalError, Diagnostic: diagInvalidInput}
	}

	eng, err := s.provider.Engine(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Info("request cancelled while waiting for engine load")
			return Outcome{Status: StatusInternalError, Diagnostic: diagCancelled}
		}
		log.Error("engine unavailable", "error", err)
		return Outcome{Status: StatusEngineUnavailable, Diagnostic: diagEngineUnavailable}
	}

	budget := s.policy.Budget(req.Duration)
	opts := s.policy.Select(req.Duration, req.Mode, req.Language)
	log.Info("starting transcription",
		"duration", req.Duration,
		"mode", string(req.Mode),
		"language", opts.Language,
		"budget", budget,
		"best_of", opts.BestOf,
		"beam_size", opts.BeamSize,
	)

	permit, err := s.gate.Acquire(ctx)
	if err != nil {
		log.Info("request cancelled while waiting for admission")
		return Outcome{Status: StatusInternalError, Diagnostic: diagCancelled}
	}
	defer permit.Release()

	res, attempts, err := s.runner.Run(ctx, eng, req, opts, budget)
	if err != nil {
		return s.failureOutcome(log, err, budget, attempts)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		log.Info("no speech recognised", "attempts", attempts, "no_speech_prob", res.NoSpeechProb)
		return Outcome{
			Status:     StatusEmptyResult,
			Language:   res.Language,
			Diagnostic: diagEmptyResult,
			Attempts:   attempts,
		}
	}

	quality := s.policy.Classify(res)
	log.Info("transcription complete",
		"language", res.Language,
		"chars", len(text),
		"segments", res.Segments,
		"quality", quality.String(),
		"attempts", attempts,
	)
	return Outcome{
		Status:   StatusSuccess,
		Text:     text,
		Language: res.Language,
		Quality:  quality,
		Attempts: attempts,
	}
}

func (s *Service) failureOutcome(log *slog.Logger, err error, budget time.Duration, attempts int) Outcome {
	var timeoutErr *TimeoutError
	switch {
	case errors.As(err, &timeoutErr):
		log.Error("transcription timed out", "budget", budget, "elapsed", timeoutErr.Elapsed)
		// Round up so a sub-minute or non-integral budget never reads as
		// "0 minutes".
		minutes := int(math.Ceil(budget.Minutes()))
		if minutes < 1 {
			minutes = 1
		}
		return Outcome{
			Status: StatusTimeout,
			Diagnostic: fmt.Sprintf(
				"Transcription took longer than %d minutes. Try a shorter clip or the fast mode.",
				minutes,
			),
			Attempts: attempts,
		}
	case errors.Is(err, context.Canceled):
		log.Info("request cancelled mid-inference")
		return Outcome{Status: StatusInternalError, Diagnostic: diagCancelled, Attempts: attempts}
	default:
		log.Error("transcription failed", "error", err, "attempts", attempts)
		return Outcome{Status: StatusInternalError, Diagnostic: diagInternal, Attempts: attempts}
	}
}

func validateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
}
