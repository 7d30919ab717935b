package profile

import (
	"strings"
	"testing"
)

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(NewRecord("alice"))
	if summary == "" {
		t.Error("expected non-empty summary for empty record")
	}
}

func TestSummarize_Full(t *testing.T) {
	r := sampleRecord()
	r.Taglines.DailyAffirmation = "I am calm"
	r.SetCompleted("s1", true)

	summary := Summarize(r)

	checks := []string{"I am calm", "calm focus", "Atomic Habits", "Completed 2 of 3", "Lo-fi"}
	for _, want := range checks {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q: %s", want, summary)
		}
	}
	if strings.Contains(summary, "Still open: Walk") {
		t.Errorf("completed suggestion listed as open: %s", summary)
	}
}

func TestSummarize_TokenBudget(t *testing.T) {
	r := NewRecord("alice")
	for i := 0; i < 200; i++ {
		r.Taglines.MindfulActivities.Names = append(r.Taglines.MindfulActivities.Names, "a very specific mindful activity for testing the budget")
		r.Taglines.MindfulActivities.Details = append(r.Taglines.MindfulActivities.Details, "detail")
	}

	summary := Summarize(r)
	tokens := len(summary) / 4
	if tokens >= 500 {
		t.Errorf("summary too long: %d estimated tokens (len=%d)", tokens, len(summary))
	}
}

func TestComputeStats(t *testing.T) {
	r := sampleRecord()
	r.CompletedItems["s2"] = true

	st := ComputeStats(r)
	if st.Total != 3 || st.Completed != 2 {
		t.Errorf("stats = %d/%d, want 2/3", st.Completed, st.Total)
	}
	if got := st.ByCategory[CategoryMusic]; got.Completed != 1 || got.Total != 1 {
		t.Errorf("music progress = %+v", got)
	}
	if st.Percent() != 66 {
		t.Errorf("Percent = %d, want 66", st.Percent())
	}
	if (Stats{}).Percent() != 0 {
		t.Error("empty stats should be 0%")
	}
}
