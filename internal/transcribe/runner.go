package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/talkscribe/talkscribe/internal/engine"
)

// TimeoutError reports an attempt that exceeded its budget.
type TimeoutError struct {
	Budget  time.Duration
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transcribe: inference exceeded %s budget after %s", e.Budget, e.Elapsed.Round(time.Second))
}

// transientFaultMarkers identify the engine's internal state-corruption
// signature. Such failures are retried once with identical options after a
// cache reset; anything else propagates immediately.
var transientFaultMarkers = []string{
	"tensor size",
	"size mismatch",
	"reshape tensor",
	"kv cache",
}

func isTransientFault(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientFaultMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Runner supervises a single inference with a duration-scaled deadline and a
// bounded retry. Inference runs on its own goroutine, raced against the
// deadline, so a slow engine call never blocks other chat traffic.
type Runner struct {
	gate   *Gate
	policy Policy
	log    *slog.Logger
	// now is injectable for the budget tests.
	now func() time.Time
}

// NewRunner wires a runner to the gate it must take the engine lock from.
func NewRunner(gate *Gate, policy Policy, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		gate:   gate,
		policy: policy,
		log:    logger.With("component", "transcribe.runner"),
		now:    time.Now,
	}
}

// Run executes at most two attempts: the initial one, then either a
// same-options retry after a transient fault or a relaxed retry after an
// empty/low-recall result. It returns the accepted result and the attempt
// count, or a TimeoutError / wrapped engine error.
func (r *Runner) Run(ctx context.Context, eng engine.Engine, req Request, opts engine.Options, budget time.Duration) (engine.Result, int, error) {
	start := r.now()
	attemptCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	res, err := r.attempt(attemptCtx, eng, req.Path, opts)
	attempts := 1

	if err != nil && isTransientFault(err) {
		r.log.Warn("transient engine fault, resetting and retrying with identical options", "error", err)
		eng.Reset()
		res, err = r.attempt(attemptCtx, eng, req.Path, opts)
		attempts++
	}
	if err != nil {
		return engine.Result{}, attempts, r.mapError(ctx, err, budget, r.now().Sub(start))
	}

	if attempts == 1 {
		remaining := budget - r.now().Sub(start)
		if r.shouldRetry(res, req, remaining) {
			relaxed := r.policy.Relaxed(opts)
			r.log.Info("retrying with relaxed options",
				"remaining_budget", remaining.Round(time.Second),
				"no_speech_prob", res.NoSpeechProb,
				"empty", strings.TrimSpace(res.Text) == "",
			)
			retryRes, retryErr := r.attempt(attemptCtx, eng, req.Path, relaxed)
			attempts++
			if retryErr != nil {
				// The initial (empty) result stands; the caller reports
				// EmptyResult rather than an error.
				r.log.Warn("relaxed retry failed, keeping initial result", "error", retryErr)
			} else {
				res = retryRes
			}
		}
	}

	return res, attempts, nil
}

// shouldRetry is the single decision point for the relaxed retry: empty
// output always qualifies, a confident-absence reading only for short clips,
// and neither unless enough budget remains to make the retry worthwhile.
func (r *Runner) shouldRetry(res engine.Result, req Request, remaining time.Duration) bool {
	if remaining < r.policy.MinRetryBudget {
		return false
	}
	if strings.TrimSpace(res.Text) == "" {
		return true
	}
	if res.NoSpeechProb > r.policy.NoSpeechRetryThreshold &&
		req.Duration > 0 && req.Duration <= r.policy.ShortClipCutoff {
		return true
	}
	return false
}

// attempt offloads one engine call to a worker goroutine and races it
// against the deadline. The engine lock is taken inside the worker so it is
// held exactly for the duration of the raw call and released even if the
// caller has already given up.
func (r *Runner) attempt(ctx context.Context, eng engine.Engine, path string, opts engine.Options) (engine.Result, error) {
	if err := ctx.Err(); err != nil {
		return engine.Result{}, err
	}

	type attemptResult struct {
		res engine.Result
		err error
	}
	done := make(chan attemptResult, 1)
	go func() {
		var ar attemptResult
		r.gate.exclusive(func() {
			ar.res, ar.err = eng.Transcribe(ctx, path, opts)
		})
		done <- ar
	}()

	select {
	case <-ctx.Done():
		return engine.Result{}, ctx.Err()
	case ar := <-done:
		return ar.res, ar.err
	}
}

// mapError separates deadline exhaustion from caller cancellation and from
// genuine engine failures.
func (r *Runner) mapError(parent context.Context, err error, budget, elapsed time.Duration) error {
	if parent.Err() != nil {
		// The caller went away; report its error, not a timeout.
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Budget: budget, Elapsed: elapsed}
	}
	return fmt.Errorf("transcribe: inference failed: %w", err)
}
