package profile

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Stats summarizes suggestion completion for the dashboard.
type Stats struct {
	Total      int                   `json:"total"`
	Completed  int                   `json:"completed"`
	ByCategory map[Category]Progress `json:"byCategory"`
}

// Progress is the completion count of one category.
type Progress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// Percent returns the completed share in the range [0, 100].
func (s Stats) Percent() int {
	if s.Total == 0 {
		return 0
	}
	return s.Completed * 100 / s.Total
}

// ComputeStats counts suggestions and their completion using IsCompleted.
func ComputeStats(r Record) Stats {
	st := Stats{ByCategory: make(map[Category]Progress)}
	for _, s := range r.Suggestions {
		p := st.ByCategory[s.Category]
		p.Total++
		st.Total++
		if r.IsCompleted(s.ID) {
			p.Completed++
			st.Completed++
		}
		st.ByCategory[s.Category] = p
	}
	return st
}

// maxSummaryChars caps the summary to stay under ~500 tokens (4 chars/token).
const maxSummaryChars = 2000

// Summarize returns a compact text view of the record suitable for
// injection into an assistant prompt.
func Summarize(r Record) string {
	var parts []string

	if r.Taglines.DailyAffirmation != "" {
		parts = append(parts, fmt.Sprintf("Daily affirmation: %s.", r.Taglines.DailyAffirmation))
	}

	if r.Taglines.Music != "" {
		parts = append(parts, fmt.Sprintf("Music mood: %s.", r.Taglines.Music))
	}
	if r.Taglines.Video != "" {
		parts = append(parts, fmt.Sprintf("Video mood: %s.", r.Taglines.Video))
	}

	for _, block := range []string{"books", "selfcare", "meditationpractices", "mindfulactivities"} {
		items := r.Taglines.Items(block)
		if len(items) == 0 {
			continue
		}
		names := make([]string, len(items))
		for i, it := range items {
			names[i] = it.Name
		}
		parts = append(parts, fmt.Sprintf("%s: %s.", blockLabel(block), strings.Join(names, ", ")))
	}

	if st := ComputeStats(r); st.Total > 0 {
		parts = append(parts, fmt.Sprintf("Completed %d of %d suggestions.", st.Completed, st.Total))
		var open []string
		for _, s := range r.Suggestions {
			if !r.IsCompleted(s.ID) {
				open = append(open, s.Title)
			}
		}
		if len(open) > 0 {
			parts = append(parts, fmt.Sprintf("Still open: %s.", strings.Join(open, ", ")))
		}
	}

	if n := len(r.ChatHistory); n > 0 {
		parts = append(parts, fmt.Sprintf("%d previous chat messages.", n))
	}

	if len(parts) == 0 {
		return "User profile: no assessment yet."
	}

	summary := strings.Join(parts, " ")
	if len(summary) > maxSummaryChars {
		// Don't split a multi-byte UTF-8 character.
		end := maxSummaryChars
		for end > 0 && !utf8.RuneStart(summary[end]) {
			end--
		}
		if idx := strings.LastIndex(summary[:end], " "); idx > 0 {
			summary = summary[:idx]
		} else {
			summary = summary[:end]
		}
	}
	return summary
}

func blockLabel(block string) string {
	switch block {
	case "books":
		return "Books"
	case "selfcare":
		return "Self-care"
	case "meditationpractices":
		return "Meditation"
	case "mindfulactivities":
		return "Mindful activities"
	}
	return block
}
