package bot

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/talkscribe/talkscribe/internal/audio"
	"github.com/talkscribe/talkscribe/internal/storage"
	"github.com/talkscribe/talkscribe/internal/transcribe"
)

const (
	startText = "Send me a voice message or an audio file and I will turn it into text.\n\n" +
		"Pick a language below, or leave it on automatic detection."
	helpText = "Commands:\n" +
		"/lang — choose the transcription language\n" +
		"/mode — trade speed for accuracy\n" +
		"/history — show this chat's transcriptions\n" +
		"/export — download the history as a .txt file\n" +
		"/clear — wipe this chat's history\n" +
		"/privacy — how your data is handled\n\n" +
		"History is kept in memory for the current session only."
	privacyText = "Audio files are deleted right after transcription. " +
		"Transcripts stay in memory for the current session and are gone when the bot restarts. " +
		"Use /clear to wipe them earlier."
)

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	userID := senderID(msg)
	switch msg.Command() {
	case "start":
		reply := tgbotapi.NewMessage(msg.Chat.ID, startText)
		reply.ReplyMarkup = languageKeyboard(b.currentLanguage(userID))
		b.send(reply)
	case "help":
		b.send(tgbotapi.NewMessage(msg.Chat.ID, helpText))
	case "lang":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Transcription language:")
		reply.ReplyMarkup = languageKeyboard(b.currentLanguage(userID))
		b.send(reply)
	case "mode":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Quality mode:")
		reply.ReplyMarkup = modeKeyboard(b.currentMode(userID))
		b.send(reply)
	case "history":
		b.send(tgbotapi.NewMessage(msg.Chat.ID, formatHistory(b.store.History(msg.Chat.ID))))
	case "clear":
		b.store.ClearHistory(msg.Chat.ID)
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "History cleared."))
	case "export":
		b.handleExport(msg.Chat.ID)
	case "stats":
		b.send(tgbotapi.NewMessage(msg.Chat.ID, formatStats(b.store.Stats())))
	case "privacy":
		b.send(tgbotapi.NewMessage(msg.Chat.ID, privacyText))
	default:
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "Unknown command. Try /help."))
	}
}

func (b *Bot) handleCallback(cq *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.log.Warn("failed to answer callback", "error", err)
	}
	if cq.Message == nil || cq.From == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	userID := cq.From.ID

	switch {
	case strings.HasPrefix(cq.Data, "lang_"):
		lang := strings.TrimPrefix(cq.Data, "lang_")
		if lang == "auto" {
			lang = ""
		}
		b.store.SetLanguage(userID, lang)
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cq.Message.MessageID,
			"Transcription language:", languageKeyboard(lang))
		b.send(edit)
	case strings.HasPrefix(cq.Data, "mode_"):
		mode := string(transcribe.ParseMode(strings.TrimPrefix(cq.Data, "mode_")))
		b.store.SetMode(userID, mode)
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cq.Message.MessageID,
			"Quality mode:", modeKeyboard(mode))
		b.send(edit)
	case cq.Data == "export_txt":
		b.handleExport(chatID)
	}
}

func (b *Bot) handleText(msg *tgbotapi.Message) {
	if !msg.Chat.IsPrivate() {
		// In groups only react when mentioned.
		if !strings.Contains(msg.Text, "@"+b.Username()) {
			return
		}
	}
	b.send(tgbotapi.NewMessage(msg.Chat.ID, "Send a voice message or audio file and I will transcribe it."))
}

func (b *Bot) handleAudio(ctx context.Context, msg *tgbotapi.Message) {
	fileID, duration, ok := audioSource(msg)
	if !ok {
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "I could not find any audio in that message."))
		return
	}

	if limit := b.cfg.MaxAudioDuration(); limit > 0 && duration > limit {
		b.send(tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(
			"⏳ That audio is longer than %d minutes. Please split it into parts.", int(limit.Minutes()))))
		return
	}

	processing, err := b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, "🎤 Processing..."))
	if err != nil {
		b.log.Warn("failed to send processing message", "error", err)
		return
	}

	path, err := b.downloadAudio(ctx, fileID)
	if err != nil {
		b.log.Error("audio download failed", "error", err)
		b.edit(msg.Chat.ID, processing.MessageID, "😔 I could not download that audio. Please try again.")
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			b.log.Warn("failed to remove temp audio file", "path", path, "error", err)
		}
	}()

	if duration == 0 {
		if probed, err := audio.ProbeDuration(path); err == nil && probed > 0 {
			duration = probed
		}
	}

	settings := b.userSettings(msg)
	outcome := b.svc.Transcribe(ctx, transcribe.Request{
		Path:     path,
		Duration: duration,
		Language: settings.Language,
		Mode:     transcribe.ParseMode(settings.Mode),
	})

	if outcome.Status != transcribe.StatusSuccess {
		b.edit(msg.Chat.ID, processing.MessageID, "😔 "+outcome.Diagnostic)
		return
	}

	b.store.AddEntry(msg.Chat.ID, senderID(msg), outcome.Text, outcome.Language)

	reply := successReply(outcome, senderName(msg), msg.Chat.IsPrivate())
	edit := tgbotapi.NewEditMessageText(msg.Chat.ID, processing.MessageID, reply)
	if msg.Chat.IsPrivate() {
		markup := resultKeyboard()
		edit.ReplyMarkup = &markup
	}
	b.send(edit)
}

func (b *Bot) handleExport(chatID int64) {
	entries := b.store.History(chatID)
	if len(entries) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "Nothing to export yet."))
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  "transcriptions.txt",
		Bytes: []byte(exportText(entries)),
	})
	b.send(doc)
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	b.send(tgbotapi.NewEditMessageText(chatID, messageID, text))
}

func (b *Bot) userSettings(msg *tgbotapi.Message) storage.Settings {
	id := senderID(msg)
	if id == 0 {
		return storage.Settings{Mode: "balanced"}
	}
	return b.store.UserSettings(id)
}

func (b *Bot) currentLanguage(userID int64) string {
	if userID == 0 {
		return ""
	}
	return b.store.UserSettings(userID).Language
}

func (b *Bot) currentMode(userID int64) string {
	if userID == 0 {
		return "balanced"
	}
	return b.store.UserSettings(userID).Mode
}

// audioSource extracts the downloadable file and the platform-reported
// duration from a message.
func audioSource(msg *tgbotapi.Message) (fileID string, duration time.Duration, ok bool) {
	switch {
	case msg.Voice != nil:
		return msg.Voice.FileID, time.Duration(msg.Voice.Duration) * time.Second, true
	case msg.Audio != nil:
		return msg.Audio.FileID, time.Duration(msg.Audio.Duration) * time.Second, true
	case msg.Document != nil && isAudioDocument(msg.Document):
		return msg.Document.FileID, 0, true
	default:
		return "", 0, false
	}
}

func isAudioDocument(doc *tgbotapi.Document) bool {
	return strings.HasPrefix(doc.MimeType, "audio/")
}

func senderID(msg *tgbotapi.Message) int64 {
	if msg.From == nil {
		return 0
	}
	return msg.From.ID
}

func senderName(msg *tgbotapi.Message) string {
	if msg.From == nil {
		return ""
	}
	name := msg.From.FirstName
	if msg.From.LastName != "" {
		name += " " + msg.From.LastName
	}
	return name
}
