package questionnaire

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Stage is where a Session is in the flow.
type Stage int

const (
	StageQuestion Stage = iota
	StageDescription
	StageSubmitted
)

func (s Stage) String() string {
	switch s {
	case StageQuestion:
		return "question"
	case StageDescription:
		return "description"
	case StageSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

var (
	ErrWrongStage      = errors.New("action not allowed at this stage")
	ErrInvalidOption   = errors.New("option out of range")
	ErrNoSelection     = errors.New("select at least one option")
	ErrSelectionLimit  = errors.New("selection limit reached")
	ErrNotMultiSelect  = errors.New("question is not multi-select")
	ErrCaptureActive   = errors.New("capture already in progress")
	ErrNoCapture       = errors.New("no capture in progress")
	ErrNoCaptureDevice = errors.New("no capture device configured")
)

// Submission is what a completed session hands to the recommendation
// pipeline.
type Submission struct {
	Answers     map[int]Answer `json:"answers"`
	Description string         `json:"description"`
	Media       *Media         `json:"media,omitempty"`
}

// Session walks one user through a question bank. It only moves forward.
// A Session is not safe for concurrent use.
type Session struct {
	questions []Question
	device    CaptureDevice

	stage   Stage
	current int
	answers map[int]Answer
	pending []int // options toggled on the current multi-select question

	description string
	capture     Capture
	media       *Media
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithCaptureDevice enables media capture on the description stage.
func WithCaptureDevice(d CaptureDevice) SessionOption {
	return func(s *Session) { s.device = d }
}

// NewSession starts a session at the first question.
func NewSession(questions []Question, opts ...SessionOption) (*Session, error) {
	if err := validateBank(questions); err != nil {
		return nil, err
	}
	s := &Session{
		questions: slices.Clone(questions),
		answers:   make(map[int]Answer, len(questions)),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Session) Stage() Stage { return s.stage }

// Index returns the current question index. It equals the number of
// questions once the session has left StageQuestion.
func (s *Session) Index() int { return s.current }

// Len returns the number of questions.
func (s *Session) Len() int { return len(s.questions) }

// Question returns the current question.
func (s *Session) Question() (Question, bool) {
	if s.stage != StageQuestion {
		return Question{}, false
	}
	return s.questions[s.current], true
}

// Progress returns the share of questions already passed, 0 to 100.
func (s *Session) Progress() int {
	return s.current * 100 / len(s.questions)
}

// Select picks option on the current question. Single-select records the
// answer and advances. Multi-select toggles the option and waits for
// Continue.
func (s *Session) Select(option int) error {
	if s.stage != StageQuestion {
		return fmt.Errorf("select in %s stage: %w", s.stage, ErrWrongStage)
	}
	q := s.questions[s.current]
	if option < 0 || option >= len(q.Options) {
		return fmt.Errorf("option %d of %d: %w", option, len(q.Options), ErrInvalidOption)
	}

	if !q.MultiSelect {
		s.record(Single(option))
		return nil
	}

	if i := slices.Index(s.pending, option); i >= 0 {
		s.pending = slices.Delete(s.pending, i, i+1)
		return nil
	}
	if len(s.pending) >= q.MaxSelections {
		return fmt.Errorf("at most %d options: %w", q.MaxSelections, ErrSelectionLimit)
	}
	s.pending = append(s.pending, option)
	return nil
}

// Selected returns the options toggled on the current multi-select
// question, in selection order.
func (s *Session) Selected() []int {
	return slices.Clone(s.pending)
}

// Continue records the current multi-select set and advances.
func (s *Session) Continue() error {
	if s.stage != StageQuestion {
		return fmt.Errorf("continue in %s stage: %w", s.stage, ErrWrongStage)
	}
	if !s.questions[s.current].MultiSelect {
		return ErrNotMultiSelect
	}
	if len(s.pending) == 0 {
		return ErrNoSelection
	}
	s.record(Multi(s.pending...))
	return nil
}

func (s *Session) record(a Answer) {
	s.answers[s.current] = a
	s.pending = nil
	s.current++
	if s.current == len(s.questions) {
		s.stage = StageDescription
	}
}

// Answers returns a copy of the recorded answers keyed by question index.
func (s *Session) Answers() map[int]Answer {
	return maps.Clone(s.answers)
}

// SetDescription stores the free-text self description.
func (s *Session) SetDescription(text string) error {
	if s.stage != StageDescription {
		return fmt.Errorf("describe in %s stage: %w", s.stage, ErrWrongStage)
	}
	s.description = strings.TrimSpace(text)
	return nil
}

func (s *Session) Description() string { return s.description }

// Recording reports whether a capture is in progress.
func (s *Session) Recording() bool { return s.capture != nil }

// Media returns the last finished recording.
func (s *Session) Media() (Media, bool) {
	if s.media == nil {
		return Media{}, false
	}
	return *s.media, true
}

// StartCapture begins recording on the configured device.
func (s *Session) StartCapture(ctx context.Context) error {
	if s.stage != StageDescription {
		return fmt.Errorf("capture in %s stage: %w", s.stage, ErrWrongStage)
	}
	if s.device == nil {
		return ErrNoCaptureDevice
	}
	if s.capture != nil {
		return ErrCaptureActive
	}
	c, err := s.device.Start(ctx)
	if err != nil {
		return fmt.Errorf("starting capture: %w", err)
	}
	s.capture = c
	return nil
}

// StopCapture ends the recording and keeps its media. The device is
// released even when Stop fails.
func (s *Session) StopCapture() error {
	if s.capture == nil {
		return ErrNoCapture
	}
	c := s.capture
	s.capture = nil
	m, err := c.Stop()
	if err != nil {
		return fmt.Errorf("stopping capture: %w", err)
	}
	s.media = &m
	return nil
}

// Close discards any capture in progress and releases its device. It can
// be called any number of times and on every exit path.
func (s *Session) Close() error {
	if s.capture == nil {
		return nil
	}
	c := s.capture
	s.capture = nil
	if err := c.Abort(); err != nil {
		return fmt.Errorf("aborting capture: %w", err)
	}
	return nil
}

// Submit finishes the session. A capture still running is stopped first
// and its media included.
func (s *Session) Submit() (Submission, error) {
	if s.stage != StageDescription {
		return Submission{}, fmt.Errorf("submit in %s stage: %w", s.stage, ErrWrongStage)
	}
	if s.capture != nil {
		if err := s.StopCapture(); err != nil {
			return Submission{}, err
		}
	}
	s.stage = StageSubmitted

	sub := Submission{
		Answers:     s.Answers(),
		Description: s.description,
	}
	if s.media != nil {
		m := *s.media
		sub.Media = &m
	}
	return sub, nil
}
