package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// StubEngine produces deterministic transcripts without invoking Whisper.
// It stands in for the native backend when whisper.cpp is disabled at build
// time or forced off by configuration, and serves as the base for test fakes.
type StubEngine struct {
	log          *slog.Logger
	modelVariant string
}

// NewStubEngine returns an Engine that generates placeholder transcripts.
func NewStubEngine(logger *slog.Logger, modelVariant string) *StubEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubEngine{
		log: logger.With(
			"component", "engine.stub",
			"model_variant", modelVariant,
		),
		modelVariant: modelVariant,
	}
}

// Transcribe implements the Engine interface.
func (e *StubEngine) Transcribe(ctx context.Context, path string, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("stub: stat audio: %w", err)
	}

	lang := opts.Language
	if lang == "" || lang == "auto" {
		lang = "en"
	}
	text := fmt.Sprintf("[stub:%s] transcribed %s (%d bytes)", e.modelVariant, filepath.Base(path), info.Size())
	e.log.Debug("stub transcript",
		"path", path,
		"bytes", info.Size(),
		"language", lang,
		"beam_size", opts.BeamSize,
	)
	return Result{
		Text:            text,
		Language:        lang,
		SegmentLogProbs: []float64{-0.2},
		NoSpeechProb:    0.05,
		Segments:        1,
	}, nil
}

// Reset implements the Engine interface; the stub holds no decode state.
func (e *StubEngine) Reset() {}

// Close implements the Engine interface.
func (e *StubEngine) Close() error {
	return nil
}
