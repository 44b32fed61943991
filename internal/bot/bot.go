// Package bot is the Telegram front-end: command parsing, inline keyboards,
// file download, and reply editing. All transcription semantics live in the
// transcribe package; this layer only moves messages and files around.
package bot

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/talkscribe/talkscribe/internal/config"
	"github.com/talkscribe/talkscribe/internal/storage"
	"github.com/talkscribe/talkscribe/internal/transcribe"
)

// Bot wires the Telegram API to the transcription service.
type Bot struct {
	api   *tgbotapi.BotAPI
	svc   *transcribe.Service
	store *storage.Store
	cfg   config.Config
	log   *slog.Logger
}

// New authenticates against the Telegram API.
func New(cfg config.Config, svc *transcribe.Service, store *storage.Store, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:   api,
		svc:   svc,
		store: store,
		cfg:   cfg,
		log:   logger.With("component", "bot", "username", api.Self.UserName),
	}, nil
}

// Username returns the authenticated bot account name.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// Run consumes updates until ctx is cancelled. Updates are handled on their
// own goroutines so a long transcription in one chat never blocks another;
// the inference gate inside the transcribe service provides the actual
// concurrency bound.
func (b *Bot) Run(ctx context.Context) error {
	// A stale webhook blocks long polling; pending updates from a previous
	// run are dropped on purpose.
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		b.log.Warn("failed to delete webhook", "error", err)
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("listening for updates")

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			wg.Wait()
			b.log.Info("bot stopped")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(update tgbotapi.Update) {
				defer wg.Done()
				b.dispatch(ctx, update)
			}(update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic while handling update", "panic", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	case update.Message == nil:
		return
	case update.Message.IsCommand():
		b.handleCommand(update.Message)
	case hasAudio(update.Message):
		b.handleAudio(ctx, update.Message)
	case update.Message.Text != "":
		b.handleText(update.Message)
	}
}

func hasAudio(msg *tgbotapi.Message) bool {
	if msg.Voice != nil || msg.Audio != nil {
		return true
	}
	return msg.Document != nil && isAudioDocument(msg.Document)
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Warn("failed to send message", "error", err)
	}
}
