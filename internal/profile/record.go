package profile

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRecord wraps every validation failure returned by Validate.
var ErrInvalidRecord = errors.New("invalid record")

// NewRecord returns the empty skeleton written when a user first logs in.
func NewRecord(username string) Record {
	r := Record{Username: username}
	r.Normalize()
	return r
}

// Normalize replaces nil collections with empty ones so the record always
// serializes as [] and {} rather than null.
func (r *Record) Normalize() {
	if r.ChatHistory == nil {
		r.ChatHistory = []ChatMessage{}
	}
	if r.Suggestions == nil {
		r.Suggestions = []Suggestion{}
	}
	if r.DashboardData == nil {
		r.DashboardData = map[string]any{}
	}
	if r.CompletedItems == nil {
		r.CompletedItems = map[string]bool{}
	}
	t := &r.Taglines
	for _, s := range []*[]string{
		&t.Books.Names, &t.Books.Details,
		&t.SelfCare.Names, &t.SelfCare.Details,
		&t.MeditationPractices.Names, &t.MeditationPractices.Details,
		&t.MindfulActivities.Names, &t.MindfulActivities.Details,
	} {
		if *s == nil {
			*s = []string{}
		}
	}
}

// Validate checks the structural invariants of a record.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidRecord)
	}
	for _, l := range r.Taglines.lists() {
		if len(l.names) != len(l.details) {
			return fmt.Errorf("%w: taglines.%s has %d names but %d details",
				ErrInvalidRecord, l.block, len(l.names), len(l.details))
		}
	}
	seen := make(map[string]struct{}, len(r.Suggestions))
	for i, s := range r.Suggestions {
		if s.ID == "" {
			return fmt.Errorf("%w: suggestion %d has no id", ErrInvalidRecord, i)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: duplicate suggestion id %q", ErrInvalidRecord, s.ID)
		}
		seen[s.ID] = struct{}{}
		if !s.Category.Valid() {
			return fmt.Errorf("%w: suggestion %q has unknown category %q", ErrInvalidRecord, s.ID, s.Category)
		}
	}
	return nil
}

// Empty reports whether the patch carries no fields.
func (p Patch) Empty() bool {
	return p.ChatHistory == nil && p.Suggestions == nil && p.DashboardData == nil &&
		p.Taglines == nil && p.CompletedItems == nil
}

// Apply merges the fields present in p into r. Username is never changed.
func (p Patch) Apply(r *Record) {
	if p.ChatHistory != nil {
		r.ChatHistory = *p.ChatHistory
	}
	if p.Suggestions != nil {
		r.Suggestions = *p.Suggestions
	}
	if p.DashboardData != nil {
		r.DashboardData = *p.DashboardData
	}
	if p.Taglines != nil {
		r.Taglines = *p.Taglines
	}
	if p.CompletedItems != nil {
		r.CompletedItems = *p.CompletedItems
	}
	r.Normalize()
}

// IsCompleted reports whether the suggestion id is done. An entry in
// CompletedItems wins; otherwise the flag on the suggestion itself is used.
func (r Record) IsCompleted(id string) bool {
	if done, ok := r.CompletedItems[id]; ok {
		return done
	}
	for _, s := range r.Suggestions {
		if s.ID == id {
			return s.Completed
		}
	}
	return false
}

// SetCompleted records completion in CompletedItems and mirrors it onto the
// matching suggestion, if any.
func (r *Record) SetCompleted(id string, done bool) {
	if r.CompletedItems == nil {
		r.CompletedItems = map[string]bool{}
	}
	r.CompletedItems[id] = done
	for i := range r.Suggestions {
		if r.Suggestions[i].ID == id {
			r.Suggestions[i].Completed = done
		}
	}
}

// Reconcile rewrites every suggestion's Completed flag from IsCompleted.
func (r *Record) Reconcile() {
	for i := range r.Suggestions {
		r.Suggestions[i].Completed = r.IsCompleted(r.Suggestions[i].ID)
	}
}

// AppendChat adds a message to the end of the chat history.
func (r *Record) AppendChat(message string, at time.Time) {
	r.ChatHistory = append(r.ChatHistory, ChatMessage{
		Message:   message,
		Timestamp: at.UnixMilli(),
	})
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	cp := r
	if r.ChatHistory != nil {
		cp.ChatHistory = make([]ChatMessage, len(r.ChatHistory))
		copy(cp.ChatHistory, r.ChatHistory)
	}
	if r.Suggestions != nil {
		cp.Suggestions = make([]Suggestion, len(r.Suggestions))
		copy(cp.Suggestions, r.Suggestions)
	}
	if r.DashboardData != nil {
		cp.DashboardData = cloneValue(r.DashboardData).(map[string]any)
	}
	if r.CompletedItems != nil {
		cp.CompletedItems = make(map[string]bool, len(r.CompletedItems))
		for k, v := range r.CompletedItems {
			cp.CompletedItems[k] = v
		}
	}
	t := &cp.Taglines
	t.Books.Names = cloneStrings(t.Books.Names)
	t.Books.Details = cloneStrings(t.Books.Details)
	t.SelfCare.Names = cloneStrings(t.SelfCare.Names)
	t.SelfCare.Details = cloneStrings(t.SelfCare.Details)
	t.MeditationPractices.Names = cloneStrings(t.MeditationPractices.Names)
	t.MeditationPractices.Details = cloneStrings(t.MeditationPractices.Details)
	t.MindfulActivities.Names = cloneStrings(t.MindfulActivities.Names)
	t.MindfulActivities.Details = cloneStrings(t.MindfulActivities.Details)
	return cp
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	cp := make([]string, len(s))
	copy(cp, s)
	return cp
}

// cloneValue deep-copies the JSON-shaped values found in DashboardData.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		cp := make(map[string]any, len(val))
		for k, e := range val {
			cp[k] = cloneValue(e)
		}
		return cp
	case []any:
		cp := make([]any, len(val))
		for i, e := range val {
			cp[i] = cloneValue(e)
		}
		return cp
	default:
		return v
	}
}
