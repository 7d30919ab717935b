package assessment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/solace/internal/profile"
)

// MoodEntry is one logged mood rating.
type MoodEntry struct {
	Rating int    `json:"rating"`
	Date   string `json:"date"`
}

// JournalEntry is one free-text journal note.
type JournalEntry struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Date    string `json:"date"`
}

// LogMood appends a 1-5 mood rating to the dashboard.
func (s *Service) LogMood(ctx context.Context, username string, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("mood rating %d out of range 1-5", rating)
	}
	entry := MoodEntry{Rating: rating, Date: s.now().UTC().Format(time.RFC3339)}
	if !s.appendDashboard(ctx, username, KeyMoodData, entry) {
		return fmt.Errorf("logging mood for %q: %w", username, ErrSaveFailed)
	}
	return nil
}

// AddJournalEntry appends a journal note and returns its id.
func (s *Service) AddJournalEntry(ctx context.Context, username, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("journal entry is empty")
	}
	entry := JournalEntry{
		ID:      uuid.NewString(),
		Content: content,
		Date:    s.now().UTC().Format(time.DateOnly),
	}
	if !s.appendDashboard(ctx, username, KeyJournalEntries, entry) {
		return "", fmt.Errorf("adding journal entry for %q: %w", username, ErrSaveFailed)
	}
	return entry.ID, nil
}

func (s *Service) appendDashboard(ctx context.Context, username, key string, entry any) bool {
	v, err := jsonValue(entry)
	if err != nil {
		return false
	}
	return s.profiles.Update(ctx, username, func(r *profile.Record) error {
		list, _ := r.DashboardData[key].([]any)
		r.DashboardData[key] = append(list, v)
		return nil
	})
}
