package transcribe

import (
	"strings"
	"time"

	"github.com/talkscribe/talkscribe/internal/config"
	"github.com/talkscribe/talkscribe/internal/engine"
)

// ParamBucket maps a duration range to decoding parameters. Shorter clips
// get cheaper settings so the fixed inference overhead does not eat the time
// budget; longer clips can afford deeper search. The no-speech threshold
// rises with duration: short quiet clips are given the benefit of the doubt.
type ParamBucket struct {
	// MaxDuration is the inclusive upper bound; zero means unbounded and must
	// only appear on the last bucket.
	MaxDuration       time.Duration
	BestOf            int
	BeamSize          int
	Temperature       float32
	NoSpeechThreshold float32
}

// TimeoutBucket maps a duration range to an inference budget.
type TimeoutBucket struct {
	MaxDuration time.Duration
	Budget      time.Duration
}

// Policy holds every tuning knob of the orchestration core. The tables are
// deliberate configuration, not correctness contracts; tests rely only on
// the documented monotonicity properties.
type Policy struct {
	Buckets []ParamBucket
	// FallbackBucket indexes Buckets when the clip duration is unknown; a
	// conservative middle-ground entry.
	FallbackBucket int

	TimeoutBuckets []TimeoutBucket
	TimeoutCeiling time.Duration

	// MinRetryBudget is the remaining budget below which no retry happens.
	MinRetryBudget time.Duration
	// ShortClipCutoff bounds the no-speech-probability retry to short clips.
	ShortClipCutoff time.Duration
	// NoSpeechRetryThreshold triggers the relaxed retry for short clips.
	NoSpeechRetryThreshold float64
	// RelaxedNoSpeechThreshold maximises recall on the retry attempt.
	RelaxedNoSpeechThreshold float32

	LowConfidenceLogProb float64
	HighNoSpeechProb     float64

	CompressionRatioThreshold float32

	// Prompts bias the decoder when a specific language is requested.
	Prompts map[string]string
	// AutoPrompt hints the expected language mix during detection.
	AutoPrompt string
}

// DefaultPolicy returns the tuning used in production.
func DefaultPolicy() Policy {
	return Policy{
		Buckets: []ParamBucket{
			{MaxDuration: 5 * time.Second, BestOf: 1, BeamSize: 2, Temperature: 0, NoSpeechThreshold: 0.30},
			{MaxDuration: 10 * time.Second, BestOf: 1, BeamSize: 3, Temperature: 0, NoSpeechThreshold: 0.35},
			{MaxDuration: 30 * time.Second, BestOf: 1, BeamSize: 3, Temperature: 0, NoSpeechThreshold: 0.40},
			{MaxDuration: 60 * time.Second, BestOf: 2, BeamSize: 4, Temperature: 0, NoSpeechThreshold: 0.45},
			{MaxDuration: 120 * time.Second, BestOf: 2, BeamSize: 5, Temperature: 0, NoSpeechThreshold: 0.50},
			{MaxDuration: 300 * time.Second, BestOf: 2, BeamSize: 5, Temperature: 0, NoSpeechThreshold: 0.55},
			{BestOf: 3, BeamSize: 5, Temperature: 0, NoSpeechThreshold: 0.60},
		},
		FallbackBucket: 4, // the <=120s bucket

		TimeoutBuckets: []TimeoutBucket{
			{MaxDuration: 120 * time.Second, Budget: 5 * time.Minute},
			{MaxDuration: 300 * time.Second, Budget: 10 * time.Minute},
		},
		TimeoutCeiling: 15 * time.Minute,

		MinRetryBudget:           30 * time.Second,
		ShortClipCutoff:          30 * time.Second,
		NoSpeechRetryThreshold:   0.85,
		RelaxedNoSpeechThreshold: 0.20,

		LowConfidenceLogProb: -0.8,
		HighNoSpeechProb:     0.5,

		CompressionRatioThreshold: 2.4,

		Prompts: map[string]string{
			"uk": "Це український текст. Використовуй українську мову.",
			"en": "This is English text.",
			"pl": "To jest język polski.",
			"de": "Das ist deutscher Text.",
			"ru": "Это русский текст.",
		},
		AutoPrompt: "Це може бути українська, англійська, польська, німецька або інша мова.",
	}
}

// PolicyFromConfig starts from the defaults and applies the configured
// overrides.
func PolicyFromConfig(cfg config.Config) Policy {
	p := DefaultPolicy()
	if cfg.TimeoutCeilingSeconds > 0 {
		p.TimeoutCeiling = cfg.TimeoutCeiling()
	}
	if cfg.Tuning.MinRetryBudgetSeconds > 0 {
		p.MinRetryBudget = time.Duration(cfg.Tuning.MinRetryBudgetSeconds) * time.Second
	}
	if cfg.Tuning.ShortClipCutoffSeconds > 0 {
		p.ShortClipCutoff = time.Duration(cfg.Tuning.ShortClipCutoffSeconds) * time.Second
	}
	if cfg.Tuning.NoSpeechRetryThreshold > 0 {
		p.NoSpeechRetryThreshold = cfg.Tuning.NoSpeechRetryThreshold
	}
	if cfg.Tuning.LowConfidenceLogProb != 0 {
		p.LowConfidenceLogProb = cfg.Tuning.LowConfidenceLogProb
	}
	if cfg.Tuning.HighNoSpeechProb > 0 {
		p.HighNoSpeechProb = cfg.Tuning.HighNoSpeechProb
	}
	return p
}

// Select maps (duration, mode, language) to decoding options. Pure and
// deterministic: the same request always yields the same options.
func (p Policy) Select(duration time.Duration, mode Mode, language string) engine.Options {
	b := p.bucketFor(duration)

	opts := engine.Options{
		Temperature:               b.Temperature,
		BestOf:                    b.BestOf,
		BeamSize:                  b.BeamSize,
		NoSpeechThreshold:         b.NoSpeechThreshold,
		CompressionRatioThreshold: p.CompressionRatioThreshold,
	}

	switch mode {
	case ModeFast:
		opts.BestOf = 1
		opts.BeamSize = max(1, b.BeamSize-2)
		opts.Temperature = b.Temperature + 0.2
	case ModeAccurate:
		opts.BestOf = b.BestOf + 2
		opts.BeamSize = b.BeamSize + 3
		opts.Temperature = 0
	}

	lang := strings.TrimSpace(strings.ToLower(language))
	if lang == "" || lang == "auto" {
		opts.Language = "auto"
		opts.InitialPrompt = p.AutoPrompt
	} else {
		opts.Language = lang
		opts.InitialPrompt = p.Prompts[lang]
	}
	return opts
}

// Relaxed derives the retry options from an attempt's options: minimum
// search depth for speed and the lowest no-speech threshold for recall.
func (p Policy) Relaxed(opts engine.Options) engine.Options {
	relaxed := opts
	relaxed.BestOf = 1
	relaxed.BeamSize = 1
	relaxed.NoSpeechThreshold = p.RelaxedNoSpeechThreshold
	return relaxed
}

// Budget computes the inference time budget for a clip. Unknown durations
// get the ceiling: there is no basis for a tighter bound.
func (p Policy) Budget(duration time.Duration) time.Duration {
	if duration <= 0 {
		return p.TimeoutCeiling
	}
	for _, b := range p.TimeoutBuckets {
		if duration <= b.MaxDuration {
			return b.Budget
		}
	}
	return p.TimeoutCeiling
}

func (p Policy) bucketFor(duration time.Duration) ParamBucket {
	if duration <= 0 {
		if p.FallbackBucket >= 0 && p.FallbackBucket < len(p.Buckets) {
			return p.Buckets[p.FallbackBucket]
		}
		return p.Buckets[len(p.Buckets)-1]
	}
	for _, b := range p.Buckets {
		if b.MaxDuration > 0 && duration <= b.MaxDuration {
			return b
		}
	}
	return p.Buckets[len(p.Buckets)-1]
}
