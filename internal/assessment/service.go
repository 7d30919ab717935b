// Package assessment connects a finished questionnaire to the stored
// profile: it saves the answers, asks the recommendation pipeline for
// taglines and suggestions, and records chat and completion updates.
package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/solace/internal/profile"
	"github.com/kalambet/solace/internal/questionnaire"
)

var (
	// ErrProfileUnavailable means the profile could not be read or created.
	// Callers treat the user as new rather than failing the session.
	ErrProfileUnavailable = errors.New("profile unavailable")
	ErrInvalidUsername    = errors.New("username is required")
	ErrSaveFailed         = errors.New("saving profile failed")
)

// Dashboard keys written by this package.
const (
	KeyPersonalityAnswers = "personalityAnswers"
	KeyUserDescription    = "userDescription"
	KeyMoodData           = "moodData"
	KeyJournalEntries     = "journalEntries"
)

// Profiles is the subset of the access facade the service needs.
type Profiles interface {
	Get(ctx context.Context, username string) (profile.Record, bool)
	Patch(ctx context.Context, username string, p profile.Patch) bool
	Update(ctx context.Context, username string, fn func(*profile.Record) error) bool
	Exists(ctx context.Context, username string) bool
	CreateUser(ctx context.Context, username string) bool
}

// Recommendation is what the pipeline returns for a submission.
type Recommendation struct {
	Taglines    profile.Taglines     `json:"taglines"`
	Suggestions []profile.Suggestion `json:"suggestions"`
}

// Recommender turns questionnaire answers into recommendations. The
// implementation (LLM, speech, video search) lives outside this module.
type Recommender interface {
	Recommend(ctx context.Context, sub questionnaire.Submission) (Recommendation, error)
}

// Service runs the assessment flow against a profile store.
type Service struct {
	profiles    Profiles
	recommender Recommender
	logger      *slog.Logger
	now         func() time.Time
}

// New returns a Service. recommender may be nil, in which case Complete
// only stores the answers.
func New(profiles Profiles, recommender Recommender, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		profiles:    profiles,
		recommender: recommender,
		logger:      logger,
		now:         time.Now,
	}
}

// Login makes sure username has a profile and returns it.
func (s *Service) Login(ctx context.Context, username string) (profile.Record, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return profile.Record{}, ErrInvalidUsername
	}
	if !s.profiles.Exists(ctx, username) {
		if !s.profiles.CreateUser(ctx, username) {
			return profile.Record{}, fmt.Errorf("creating %q: %w", username, ErrProfileUnavailable)
		}
		s.logger.Info("created profile", "username", username)
	}
	r, ok := s.profiles.Get(ctx, username)
	if !ok {
		return profile.Record{}, fmt.Errorf("loading %q: %w", username, ErrProfileUnavailable)
	}
	return r, nil
}

// Complete stores a submission and, when a recommender is configured,
// replaces the user's taglines and suggestions with fresh ones. A new set
// of suggestions starts with nothing completed. A recommender failure is
// logged and the answers stay saved.
func (s *Service) Complete(ctx context.Context, username string, sub questionnaire.Submission) (profile.Record, error) {
	answers, err := jsonValue(sub.Answers)
	if err != nil {
		return profile.Record{}, fmt.Errorf("encoding answers: %w", err)
	}
	ok := s.profiles.Update(ctx, username, func(r *profile.Record) error {
		r.DashboardData[KeyPersonalityAnswers] = answers
		r.DashboardData[KeyUserDescription] = sub.Description
		return nil
	})
	if !ok {
		return profile.Record{}, fmt.Errorf("saving answers for %q: %w", username, ErrSaveFailed)
	}

	if s.recommender != nil {
		if err := s.applyRecommendation(ctx, username, sub); err != nil {
			s.logger.Warn("recommendation skipped", "username", username, "error", err)
		}
	}

	r, ok := s.profiles.Get(ctx, username)
	if !ok {
		return profile.Record{}, fmt.Errorf("reloading %q: %w", username, ErrProfileUnavailable)
	}
	return r, nil
}

func (s *Service) applyRecommendation(ctx context.Context, username string, sub questionnaire.Submission) error {
	rec, err := s.recommender.Recommend(ctx, sub)
	if err != nil {
		return fmt.Errorf("recommending: %w", err)
	}

	suggestions := make([]profile.Suggestion, 0, len(rec.Suggestions))
	seen := make(map[string]bool, len(rec.Suggestions))
	for _, sg := range rec.Suggestions {
		if !sg.Category.Valid() {
			s.logger.Debug("dropping suggestion with unknown category", "title", sg.Title, "category", sg.Category)
			continue
		}
		if sg.ID == "" || seen[sg.ID] {
			sg.ID = uuid.NewString()
		}
		seen[sg.ID] = true
		sg.Completed = false
		suggestions = append(suggestions, sg)
	}

	check := profile.NewRecord(username)
	check.Taglines = rec.Taglines
	check.Suggestions = suggestions
	check.Normalize()
	if err := check.Validate(); err != nil {
		return err
	}

	completed := map[string]bool{}
	if !s.profiles.Patch(ctx, username, profile.Patch{
		Taglines:       &check.Taglines,
		Suggestions:    &check.Suggestions,
		CompletedItems: &completed,
	}) {
		return ErrSaveFailed
	}
	s.logger.Info("stored recommendations", "username", username, "suggestions", len(suggestions))
	return nil
}

// RecordChat appends message to the user's chat history.
func (s *Service) RecordChat(ctx context.Context, username, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}
	ok := s.profiles.Update(ctx, username, func(r *profile.Record) error {
		r.AppendChat(message, s.now())
		return nil
	})
	if !ok {
		return fmt.Errorf("recording chat for %q: %w", username, ErrSaveFailed)
	}
	return nil
}

// MarkCompleted sets the completion state of a suggestion.
func (s *Service) MarkCompleted(ctx context.Context, username, id string, done bool) error {
	if id == "" {
		return errors.New("suggestion id is required")
	}
	ok := s.profiles.Update(ctx, username, func(r *profile.Record) error {
		r.SetCompleted(id, done)
		return nil
	})
	if !ok {
		return fmt.Errorf("marking %q for %q: %w", id, username, ErrSaveFailed)
	}
	return nil
}

// jsonValue converts v into the plain JSON shape stored in dashboardData.
func jsonValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
