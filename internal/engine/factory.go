package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talkscribe/talkscribe/internal/config"
	"github.com/talkscribe/talkscribe/internal/models"
)

// ErrNativeUnavailable indicates the whisper.cpp backend was not compiled in.
var ErrNativeUnavailable = errors.New("engine: native backend unavailable")

// Open loads an Engine by trying the configured model variants in order; the
// first variant that resolves and initialises wins. Errors from all failed
// candidates are joined so operators can see every load failure at once.
func Open(ctx context.Context, cfg config.Config, manager *models.Manager, logger *slog.Logger) (Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.UseStubEngine {
		logger.Warn("stub engine forced by configuration")
		return NewStubEngine(logger, firstVariant(cfg.ModelVariants)), nil
	}
	if !NativeAvailable() {
		return nil, ErrNativeUnavailable
	}
	if manager == nil {
		return nil, errors.New("engine: model manager required")
	}

	manifest, err := models.DefaultManifest()
	if err != nil {
		return nil, fmt.Errorf("engine: load manifest: %w", err)
	}

	var errs []error
	for _, variant := range cfg.ModelVariants {
		variant = strings.TrimSpace(variant)
		if variant == "" {
			continue
		}
		modelPath, err := manager.EnsureVariant(ctx, variant, models.EnsureOptions{
			Manifest: manifest,
			Override: cfg.ModelPath,
		})
		if err != nil {
			logger.Warn("model variant unavailable", "variant", variant, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", variant, err))
			continue
		}
		eng, err := NewNativeEngine(modelPath)
		if err != nil {
			logger.Warn("native engine initialisation failed", "variant", variant, "model_path", modelPath, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", variant, err))
			continue
		}
		logger.Info("native engine ready", "variant", variant, "model_path", modelPath)
		return eng, nil
	}

	if len(errs) == 0 {
		return nil, errors.New("engine: no model variants configured")
	}
	return nil, fmt.Errorf("engine: all model variants failed: %w", errors.Join(errs...))
}

func firstVariant(variants []string) string {
	for _, v := range variants {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return config.DefaultModel
}
