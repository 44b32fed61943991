package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/talkscribe/talkscribe/internal/botinfo"
	"github.com/talkscribe/talkscribe/internal/storage"
	"github.com/talkscribe/talkscribe/internal/transcribe"
)

const lowConfidencePrefix = "⚠️ The audio was hard to make out, the result may be inaccurate.\n\n"

// historyPreviewLimit bounds how much of each entry /history shows inline;
// /export carries the full text.
const historyPreviewLimit = 200

// successReply renders a finished transcription. Group chats get the sender
// name prefixed so interleaved replies stay attributable.
func successReply(outcome transcribe.Outcome, sender string, private bool) string {
	var sb strings.Builder
	if outcome.Quality == transcribe.QualityLowConfidence {
		sb.WriteString(lowConfidencePrefix)
	}
	if !private && sender != "" {
		sb.WriteString(sender)
		sb.WriteString(":\n")
	}
	sb.WriteString(outcome.Text)
	return sb.String()
}

func formatHistory(entries []storage.Entry) string {
	if len(entries) == 0 {
		return "No transcriptions yet. Send me a voice message to get started."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Last %d transcription(s):\n", len(entries))
	for i, entry := range entries {
		text := truncate(entry.Text, historyPreviewLimit)
		fmt.Fprintf(&sb, "\n%d. [%s] %s\n", i+1, entry.Timestamp.Format("02 Jan 15:04"), text)
	}
	return sb.String()
}

// truncate shortens s to at most limit bytes without cutting through a
// multi-byte rune; Cyrillic transcripts would otherwise produce invalid UTF-8
// that the messaging API rejects.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func formatStats(stats storage.Stats) string {
	var sb strings.Builder
	sb.WriteString("📊 Usage\n")
	fmt.Fprintf(&sb, "Users: %d\n", stats.TotalUsers)
	fmt.Fprintf(&sb, "Chats: %d\n", stats.UniqueChats)
	fmt.Fprintf(&sb, "Transcriptions: %d\n", stats.TotalTranscriptions)
	if stats.TotalTranscriptions > 0 {
		fmt.Fprintf(&sb, "Average length: %.0f characters\n", stats.AvgTextLength)
	}
	if len(stats.TopLanguages) > 0 {
		sb.WriteString("Top languages:")
		for _, lc := range stats.TopLanguages {
			fmt.Fprintf(&sb, " %s (%d)", lc.Language, lc.Count)
		}
		sb.WriteString("\n")
	}
	if !stats.LastActivity.IsZero() {
		fmt.Fprintf(&sb, "Last activity: %s\n", stats.LastActivity.Format("02 Jan 2006 15:04"))
	}
	return sb.String()
}

// exportText renders a chat's history as the plain-text document sent by
// /export.
func exportText(entries []storage.Entry) string {
	var sb strings.Builder
	sb.WriteString(botinfo.Info.Name + " transcription history\n")
	sb.WriteString(strings.Repeat("=", 32))
	sb.WriteString("\n")
	for i, entry := range entries {
		fmt.Fprintf(&sb, "\n#%d  %s", i+1, entry.Timestamp.Format("2006-01-02 15:04:05"))
		if entry.Language != "" {
			fmt.Fprintf(&sb, "  (%s)", entry.Language)
		}
		sb.WriteString("\n")
		sb.WriteString(entry.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}
