package storage

import (
	"fmt"
	"reflect"
	"testing"
	"time"
)

func TestUserSettingsDefaults(t *testing.T) {
	store := NewStore(10)
	settings := store.UserSettings(42)
	if settings.Mode != "balanced" {
		t.Fatalf("expected default mode balanced, got %q", settings.Mode)
	}
	if settings.Language != "" {
		t.Fatalf("expected automatic language by default, got %q", settings.Language)
	}
	if store.UserCount() != 1 {
		t.Fatalf("expected one registered user, got %d", store.UserCount())
	}
}

func TestSetLanguageAndMode(t *testing.T) {
	store := NewStore(10)
	store.SetLanguage(42, "uk")
	store.SetMode(42, "accurate")

	settings := store.UserSettings(42)
	if settings.Language != "uk" {
		t.Fatalf("expected language uk, got %q", settings.Language)
	}
	if settings.Mode != "accurate" {
		t.Fatalf("expected mode accurate, got %q", settings.Mode)
	}

	store.SetLanguage(42, "")
	if settings := store.UserSettings(42); settings.Language != "" {
		t.Fatalf("expected language reset to auto, got %q", settings.Language)
	}
}

func TestSetLanguageFillsModeDefault(t *testing.T) {
	store := NewStore(10)
	store.SetLanguage(7, "pl")
	if settings := store.UserSettings(7); settings.Mode != "balanced" {
		t.Fatalf("expected default mode after SetLanguage, got %q", settings.Mode)
	}
}

func TestHistoryTrimsToBound(t *testing.T) {
	store := NewStore(3)
	for i := 0; i < 5; i++ {
		store.AddEntry(1, 42, fmt.Sprintf("entry %d", i), "en")
	}

	entries := store.History(1)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	want := []string{"entry 2", "entry 3", "entry 4"}
	for i, entry := range entries {
		if entry.Text != want[i] {
			t.Fatalf("entry %d: expected %q, got %q", i, want[i], entry.Text)
		}
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	store := NewStore(10)
	store.AddEntry(1, 42, "original", "en")

	entries := store.History(1)
	entries[0].Text = "mutated"

	if got := store.History(1)[0].Text; got != "original" {
		t.Fatalf("stored entry mutated through returned slice: %q", got)
	}
}

func TestClearHistory(t *testing.T) {
	store := NewStore(10)
	store.AddEntry(1, 42, "hello", "en")
	store.AddEntry(2, 42, "kept", "en")
	store.ClearHistory(1)

	if entries := store.History(1); len(entries) != 0 {
		t.Fatalf("expected cleared history, got %d entries", len(entries))
	}
	if entries := store.History(2); len(entries) != 1 {
		t.Fatalf("expected other chat untouched, got %d entries", len(entries))
	}
}

func TestStats(t *testing.T) {
	store := NewStore(10)
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	store.AddEntry(1, 10, "one", "uk")
	store.AddEntry(1, 11, "two", "uk")
	store.AddEntry(2, 10, "three", "en")
	store.AddEntry(2, 12, "unknown language", "")

	stats := store.Stats()
	if stats.TotalTranscriptions != 4 {
		t.Fatalf("expected 4 transcriptions, got %d", stats.TotalTranscriptions)
	}
	if stats.UniqueChats != 2 {
		t.Fatalf("expected 2 chats, got %d", stats.UniqueChats)
	}
	if stats.TotalUsers != 3 {
		t.Fatalf("expected 3 users, got %d", stats.TotalUsers)
	}
	wantLanguages := []LanguageCount{{Language: "uk", Count: 2}, {Language: "en", Count: 1}}
	if !reflect.DeepEqual(stats.TopLanguages, wantLanguages) {
		t.Fatalf("expected top languages %v, got %v", wantLanguages, stats.TopLanguages)
	}
	if stats.AvgTextLength <= 0 {
		t.Fatalf("expected positive average length, got %v", stats.AvgTextLength)
	}
	if stats.LastActivity != base.Add(4*time.Minute) {
		t.Fatalf("expected last activity at fourth entry, got %v", stats.LastActivity)
	}
}

func TestStatsTopLanguagesBounded(t *testing.T) {
	store := NewStore(100)
	languages := []string{"uk", "en", "pl", "de", "ru", "fr", "es"}
	for i, lang := range languages {
		for j := 0; j <= i; j++ {
			store.AddEntry(1, 42, "text", lang)
		}
	}

	stats := store.Stats()
	if len(stats.TopLanguages) != 5 {
		t.Fatalf("expected top 5 languages, got %d", len(stats.TopLanguages))
	}
	if stats.TopLanguages[0].Language != "es" {
		t.Fatalf("expected most frequent language first, got %q", stats.TopLanguages[0].Language)
	}
	for i := 1; i < len(stats.TopLanguages); i++ {
		if stats.TopLanguages[i].Count > stats.TopLanguages[i-1].Count {
			t.Fatalf("top languages not sorted: %v", stats.TopLanguages)
		}
	}
}
