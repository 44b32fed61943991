// Package storage keeps per-user preferences and per-chat transcription
// history in memory. Nothing is persisted; the bot's privacy story is that
// history lives only for the current process.
package storage

import (
	"sort"
	"sync"
	"time"
)

// Settings are the per-user transcription preferences.
type Settings struct {
	// Language is an ISO-639-1 code; empty means automatic detection.
	Language string
	// Mode is the quality mode: fast, balanced, or accurate.
	Mode string
}

// Entry is one transcription kept in a chat's history.
type Entry struct {
	Text      string
	Language  string
	UserID    int64
	Timestamp time.Time
}

// LanguageCount pairs a language code with its usage count.
type LanguageCount struct {
	Language string
	Count    int
}

// Stats aggregates usage across all chats.
type Stats struct {
	TotalUsers          int
	TotalTranscriptions int
	UniqueChats         int
	TotalTextLength     int
	AvgTextLength       float64
	TopLanguages        []LanguageCount
	LastActivity        time.Time
}

// Store is a mutex-protected in-memory store.
type Store struct {
	mu         sync.Mutex
	settings   map[int64]Settings
	history    map[int64][]Entry
	users      map[int64]struct{}
	maxEntries int
	now        func() time.Time
}

// NewStore bounds each chat's history to maxEntries (oldest trimmed first).
func NewStore(maxEntries int) *Store {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Store{
		settings:   make(map[int64]Settings),
		history:    make(map[int64][]Entry),
		users:      make(map[int64]struct{}),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// UserSettings returns the user's preferences, registering the user and
// creating defaults on first access.
func (s *Store) UserSettings(userID int64) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = struct{}{}
	settings, ok := s.settings[userID]
	if !ok {
		settings = Settings{Mode: "balanced"}
		s.settings[userID] = settings
	}
	return settings
}

// SetLanguage stores the user's language preference; empty means auto.
func (s *Store) SetLanguage(userID int64, language string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = struct{}{}
	settings := s.settings[userID]
	if settings.Mode == "" {
		settings.Mode = "balanced"
	}
	settings.Language = language
	s.settings[userID] = settings
}

// SetMode stores the user's quality mode preference.
func (s *Store) SetMode(userID int64, mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = struct{}{}
	settings := s.settings[userID]
	settings.Mode = mode
	s.settings[userID] = settings
}

// AddEntry appends a transcription to the chat's history, trimming to the
// configured bound.
func (s *Store) AddEntry(chatID, userID int64, text, language string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if userID != 0 {
		s.users[userID] = struct{}{}
	}
	entries := append(s.history[chatID], Entry{
		Text:      text,
		Language:  language,
		UserID:    userID,
		Timestamp: s.now(),
	})
	if len(entries) > s.maxEntries {
		entries = entries[len(entries)-s.maxEntries:]
	}
	s.history[chatID] = entries
}

// History returns a copy of the chat's history.
func (s *Store) History(chatID int64) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.history[chatID]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// ClearHistory removes all entries for the chat.
func (s *Store) ClearHistory(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, chatID)
}

// UserCount reports the number of unique users seen so far.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// Stats aggregates usage for the /stats command.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		TotalUsers:  len(s.users),
		UniqueChats: len(s.history),
	}
	languages := make(map[string]int)
	for _, entries := range s.history {
		for _, entry := range entries {
			stats.TotalTranscriptions++
			stats.TotalTextLength += len(entry.Text)
			if entry.Language != "" {
				languages[entry.Language]++
			}
			if entry.Timestamp.After(stats.LastActivity) {
				stats.LastActivity = entry.Timestamp
			}
		}
	}
	if stats.TotalTranscriptions > 0 {
		stats.AvgTextLength = float64(stats.TotalTextLength) / float64(stats.TotalTranscriptions)
	}

	for lang, count := range languages {
		stats.TopLanguages = append(stats.TopLanguages, LanguageCount{Language: lang, Count: count})
	}
	sort.Slice(stats.TopLanguages, func(i, j int) bool {
		if stats.TopLanguages[i].Count != stats.TopLanguages[j].Count {
			return stats.TopLanguages[i].Count > stats.TopLanguages[j].Count
		}
		return stats.TopLanguages[i].Language < stats.TopLanguages[j].Language
	})
	if len(stats.TopLanguages) > 5 {
		stats.TopLanguages = stats.TopLanguages[:5]
	}
	return stats
}
