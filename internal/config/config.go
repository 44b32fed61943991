// Package config carries bootstrap configuration for the bot. Values come
// from an optional YAML file, overridden by environment variables (a .env
// file next to the binary is honoured).
package config

import (
	"fmt"
	"time"
)

const (
	DefaultModel                 = "base"
	DefaultLanguage              = "auto"
	DefaultLogLevel              = "info"
	DefaultDataDir               = "data"
	DefaultMaxAudioSeconds       = 600
	DefaultTimeoutCeilingSeconds = 900
	DefaultMaxConcurrent         = 1
	DefaultMaxHistoryEntries     = 100
)

// DefaultModelVariants is the load order when none is configured: smaller
// models first so the bot becomes usable quickly.
func DefaultModelVariants() []string {
	return []string{"base", "small", "medium"}
}

// Config captures everything the binaries need at startup.
type Config struct {
	BotToken string `yaml:"bot_token"`
	// ModelVariants are tried in order; the first that loads wins.
	ModelVariants []string `yaml:"model_variants"`
	// ModelPath bypasses the manifest and points at an explicit model file.
	ModelPath string `yaml:"model_path"`
	DataDir   string `yaml:"data_dir"`
	LogLevel  string `yaml:"log_level"`
	// Language is the default hint for users without a saved preference.
	Language string `yaml:"language"`
	// MaxAudioSeconds rejects longer clips before any download happens.
	MaxAudioSeconds int `yaml:"max_audio_seconds"`
	// TimeoutCeilingSeconds caps the per-request inference budget.
	TimeoutCeilingSeconds int `yaml:"timeout_ceiling_seconds"`
	// MaxConcurrent bounds simultaneous inference attempts.
	MaxConcurrent     int  `yaml:"max_concurrent"`
	MaxHistoryEntries int  `yaml:"max_history_entries"`
	UseStubEngine     bool `yaml:"use_stub_engine"`

	Tuning Tuning `yaml:"tuning"`
}

// Tuning exposes the retry and quality thresholds as configuration; the
// bucket tables themselves live with the transcription policy.
type Tuning struct {
	MinRetryBudgetSeconds  int     `yaml:"min_retry_budget_seconds"`
	ShortClipCutoffSeconds int     `yaml:"short_clip_cutoff_seconds"`
	NoSpeechRetryThreshold float64 `yaml:"no_speech_retry_threshold"`
	LowConfidenceLogProb   float64 `yaml:"low_confidence_log_prob"`
	HighNoSpeechProb       float64 `yaml:"high_no_speech_prob"`
}

// Validate applies defaults and rejects out-of-range values. The bot token
// is checked by the bot binary, not here, so tools can share the loader.
func (c *Config) Validate() error {
	if len(c.ModelVariants) == 0 {
		c.ModelVariants = DefaultModelVariants()
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.MaxAudioSeconds == 0 {
		c.MaxAudioSeconds = DefaultMaxAudioSeconds
	}
	if c.MaxAudioSeconds < 0 {
		return fmt.Errorf("config: max_audio_seconds must be >= 0, got %d", c.MaxAudioSeconds)
	}
	if c.TimeoutCeilingSeconds == 0 {
		c.TimeoutCeilingSeconds = DefaultTimeoutCeilingSeconds
	}
	if c.TimeoutCeilingSeconds < 0 {
		return fmt.Errorf("config: timeout_ceiling_seconds must be >= 0, got %d", c.TimeoutCeilingSeconds)
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("config: max_concurrent must be >= 1, got %d", c.MaxConcurrent)
	}
	if c.MaxHistoryEntries == 0 {
		c.MaxHistoryEntries = DefaultMaxHistoryEntries
	}
	if c.MaxHistoryEntries < 1 {
		return fmt.Errorf("config: max_history_entries must be >= 1, got %d", c.MaxHistoryEntries)
	}
	return nil
}

// TimeoutCeiling returns the configured ceiling as a duration.
func (c Config) TimeoutCeiling() time.Duration {
	return time.Duration(c.TimeoutCeilingSeconds) * time.Second
}

// MaxAudioDuration returns the configured clip limit as a duration.
func (c Config) MaxAudioDuration() time.Duration {
	return time.Duration(c.MaxAudioSeconds) * time.Second
}
