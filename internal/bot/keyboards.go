package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type languageChoice struct {
	code  string
	label string
}

// languageChoices is the fixed set offered in the picker; any other ISO code
// still works through the transcription pipeline, the keyboard is just the
// common cases.
var languageChoices = []languageChoice{
	{"auto", "🌐 Auto"},
	{"uk", "🇺🇦 Українська"},
	{"en", "🇬🇧 English"},
	{"pl", "🇵🇱 Polski"},
	{"de", "🇩🇪 Deutsch"},
	{"ru", "Русский"},
}

type modeChoice struct {
	mode  string
	label string
}

var modeChoices = []modeChoice{
	{"fast", "⚡ Fast"},
	{"balanced", "⚖️ Balanced"},
	{"accurate", "🎯 Accurate"},
}

// languageKeyboard builds the language picker with the current selection
// marked. An empty current language means automatic detection.
func languageKeyboard(current string) tgbotapi.InlineKeyboardMarkup {
	if current == "" {
		current = "auto"
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range languageChoices {
		label := c.label
		if c.code == current {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, "lang_"+c.code))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// modeKeyboard builds the quality mode picker with the current selection
// marked.
func modeKeyboard(current string) tgbotapi.InlineKeyboardMarkup {
	if current == "" {
		current = "balanced"
	}
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range modeChoices {
		label := c.label
		if c.mode == current {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, "mode_"+c.mode))
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(row...))
}

// resultKeyboard is attached under successful transcriptions in private
// chats.
func resultKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📄 Export history", "export_txt"),
		),
	)
}
