package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/talkscribe/talkscribe/internal/bot"
	"github.com/talkscribe/talkscribe/internal/botinfo"
	"github.com/talkscribe/talkscribe/internal/config"
	"github.com/talkscribe/talkscribe/internal/engine"
	"github.com/talkscribe/talkscribe/internal/models"
	"github.com/talkscribe/talkscribe/internal/storage"
	"github.com/talkscribe/talkscribe/internal/telemetry"
	"github.com/talkscribe/talkscribe/internal/transcribe"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Loader{Path: *configPath}.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.BotToken == "" {
		slog.Error("BOT_TOKEN is required")
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("starting bot",
		"name", botinfo.Info.Name,
		"model_variants", strings.Join(cfg.ModelVariants, ","),
		"language", cfg.Language,
		"data_dir", cfg.DataDir,
		"max_concurrent", cfg.MaxConcurrent,
		"stub_engine", cfg.UseStubEngine,
	)

	recorder := telemetry.NewRecorder(logger)

	manager, err := models.NewManager(cfg.DataDir, logger)
	if err != nil {
		logger.Error("failed to initialise model manager", "error", err)
		os.Exit(1)
	}

	provider := engine.NewProvider(func(ctx context.Context) (engine.Engine, error) {
		return engine.Open(ctx, cfg, manager, logger)
	}, logger)
	defer func() {
		if err := provider.Close(); err != nil {
			logger.Warn("failed to close engine", "error", err)
		}
	}()

	store := storage.NewStore(cfg.MaxHistoryEntries)
	service := transcribe.NewService(
		transcribe.PolicyFromConfig(cfg),
		provider,
		recorder,
		cfg.MaxConcurrent,
		logger,
	)

	tgBot, err := bot.New(cfg, service, store, logger)
	if err != nil {
		logger.Error("failed to connect to Telegram", "error", err)
		os.Exit(1)
	}
	logger.Info("authenticated", "username", tgBot.Username())

	if err := tgBot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bot terminated with error", "error", err)
		os.Exit(1)
	}

	if snapshot := recorder.Snapshot(); snapshot.TotalRequests > 0 {
		logger.Info("telemetry totals",
			"total_requests", snapshot.TotalRequests,
			"total_success", snapshot.TotalSuccess,
			"total_retries", snapshot.TotalRetries,
			"total_timeouts", snapshot.TotalTimeouts,
			"total_empty_results", snapshot.TotalEmptyResults,
			"total_failures", snapshot.TotalFailures,
			"total_low_confidence", snapshot.TotalLowConfidence,
		)
	}

	logger.Info("bot stopped")
}

func newLogger(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(value string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
