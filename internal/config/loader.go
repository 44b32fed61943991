package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Loader loads configuration from an optional YAML file plus environment
// variables. Tests can override Lookup to inject deterministic maps.
type Loader struct {
	// Path points at a YAML config file; empty means env-only.
	Path   string
	Lookup func(string) (string, bool)
}

// Load reads the file (when present), applies environment overrides, and
// validates the result. A .env file in the working directory is folded into
// the environment first, matching how the bot is deployed.
func (l Loader) Load() (Config, error) {
	if l.Lookup == nil {
		// Ignore a missing .env; it is optional in every deployment.
		_ = godotenv.Load()
		l.Lookup = os.LookupEnv
	}

	var cfg Config
	if l.Path != "" {
		data, err := os.ReadFile(l.Path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", l.Path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", l.Path, err)
		}
	}

	overrideString(l.Lookup, "BOT_TOKEN", &cfg.BotToken)
	overrideString(l.Lookup, "LOG_LEVEL", &cfg.LogLevel)
	overrideString(l.Lookup, "LANGUAGE", &cfg.Language)
	overrideString(l.Lookup, "DATA_DIR", &cfg.DataDir)
	overrideString(l.Lookup, "MODEL_PATH", &cfg.ModelPath)
	overrideList(l.Lookup, "WHISPER_MODELS", &cfg.ModelVariants)
	overrideInt(l.Lookup, "MAX_AUDIO_DURATION", &cfg.MaxAudioSeconds)
	overrideInt(l.Lookup, "TRANSCRIPTION_TIMEOUT", &cfg.TimeoutCeilingSeconds)
	overrideInt(l.Lookup, "MAX_CONCURRENT_TRANSCRIPTIONS", &cfg.MaxConcurrent)
	overrideInt(l.Lookup, "MAX_HISTORY_ENTRIES", &cfg.MaxHistoryEntries)
	overrideBool(l.Lookup, "USE_STUB_ENGINE", &cfg.UseStubEngine)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if lookup == nil || target == nil {
		return
	}
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideList(lookup func(string) (string, bool), key string, target *[]string) {
	if lookup == nil || target == nil {
		return
	}
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) > 0 {
		*target = items
	}
}

func overrideInt(lookup func(string) (string, bool), key string, target *int) {
	if lookup == nil || target == nil {
		return
	}
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return
	}
	*target = parsed
}

func overrideBool(lookup func(string) (string, bool), key string, target *bool) {
	if lookup == nil || target == nil {
		return
	}
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return
	}
	*target = parsed
}
