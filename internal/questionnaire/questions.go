// Package questionnaire drives the personality assessment: a fixed,
// forward-only sequence of single- and multi-select questions followed by
// a free-text description with optional media capture.
package questionnaire

import (
	"errors"
	"fmt"
)

// Option is one answer choice.
type Option struct {
	Emoji string `json:"emoji"`
	Text  string `json:"text"`
}

// Question is one page of the assessment. MaxSelections only applies when
// MultiSelect is set.
type Question struct {
	Prompt        string   `json:"question"`
	Options       []Option `json:"options"`
	MultiSelect   bool     `json:"multiSelect,omitempty"`
	MaxSelections int      `json:"maxSelections,omitempty"`
}

// ErrInvalidQuestions is returned by NewSession for an unusable bank.
var ErrInvalidQuestions = errors.New("invalid question bank")

func validateBank(qs []Question) error {
	if len(qs) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidQuestions)
	}
	for i, q := range qs {
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: question %d has no options", ErrInvalidQuestions, i)
		}
		if q.MultiSelect && q.MaxSelections < 1 {
			return fmt.Errorf("%w: question %d allows no selections", ErrInvalidQuestions, i)
		}
	}
	return nil
}

// DefaultQuestions returns the standard ten-question bank: nine
// single-select questions and a final pick-three.
func DefaultQuestions() []Question {
	return []Question{
		{
			Prompt: "If you were a character in a movie, what role would you play?",
			Options: []Option{
				{"🦸", "The Hero (brave and determined)"},
				{"🧙", "The Wise Mentor (helpful and insightful)"},
				{"🎭", "The Comedian (funny and lighthearted)"},
				{"🕵️", "The Detective (curious and analytical)"},
				{"🖤", "The Anti-Hero (flawed but relatable)"},
			},
		},
		{
			Prompt: "What's your go-to way to spend a free afternoon?",
			Options: []Option{
				{"📚", "Reading a book or learning something new"},
				{"🎨", "Creating art, music, or writing"},
				{"🏋️", "Exercising or playing sports"},
				{"👥", "Hanging out with friends or family"},
				{"🛋️", "Relaxing with a movie or video games"},
			},
		},
		{
			Prompt: "If you could instantly master any skill, what would it be?",
			Options: []Option{
				{"🎤", "Public speaking or performing"},
				{"🧠", "Solving complex problems"},
				{"🖌️", "Painting, drawing, or designing"},
				{"🧘", "Meditation or mindfulness"},
				{"🕹️", "Gaming or coding"},
			},
		},
		{
			Prompt: "What's your ideal weekend getaway?",
			Options: []Option{
				{"🌊", "A beach vacation (relaxing and sunny)"},
				{"🏔️", "A mountain retreat (peaceful and scenic)"},
				{"🏙️", "A city adventure (exploring and bustling)"},
				{"🏕️", "Camping in nature (outdoorsy and rustic)"},
				{"🏠", "Staying home (cozy and comfortable)"},
			},
		},
		{
			Prompt: "How do you usually make decisions?",
			Options: []Option{
				{"🧠", "Logic and reasoning (I weigh the pros and cons)"},
				{"💖", "Gut feeling (I trust my instincts)"},
				{"👥", "Advice from others (I ask friends or family)"},
				{"🎲", "Spontaneity (I go with the flow)"},
				{"🕵️", "Research (I gather all the facts first)"},
			},
		},
		{
			Prompt: "What's your superpower in a team setting?",
			Options: []Option{
				{"💡", "Coming up with creative ideas"},
				{"🤝", "Bringing people together and mediating"},
				{"🛠️", "Solving problems and fixing things"},
				{"👑", "Leading and organizing the group"},
				{"🔋", "Keeping everyone motivated and positive"},
			},
		},
		{
			Prompt: "If your life had a theme song, what would it be?",
			Options: []Option{
				{"🎵", "Upbeat and energetic (e.g., pop or rock)"},
				{"🎻", "Calm and soothing (e.g., classical or acoustic)"},
				{"🎤", "Bold and empowering (e.g., hip-hop or anthem)"},
				{"🎸", "Nostalgic and reflective (e.g., indie or folk)"},
				{"🎧", "Eclectic and unique (e.g., experimental or jazz)"},
			},
		},
		{
			Prompt: "What's your favorite way to connect with others?",
			Options: []Option{
				{"🗣️", "Deep conversations (one-on-one or small groups)"},
				{"🎉", "Social events (parties or gatherings)"},
				{"🎮", "Online gaming or virtual hangouts"},
				{"📱", "Texting or social media"},
				{"🧘", "Shared activities (yoga, sports, or hobbies)"},
			},
		},
		{
			Prompt: "What's your approach to solving a big problem?",
			Options: []Option{
				{"🧩", "Break it into smaller pieces and tackle them one by one"},
				{"🌀", "Jump in headfirst and figure it out as I go"},
				{"👥", "Ask for help or collaborate with others"},
				{"🧠", "Analyze it from every angle before taking action"},
				{"🧘", "Take a step back and reflect before deciding"},
			},
		},
		{
			Prompt: "Pick three emojis that best describe you:",
			Options: []Option{
				{"😊", "Friendly and approachable"},
				{"📊", "Analytical and detail-oriented"},
				{"🎨", "Creative and artistic"},
				{"🧠", "Curious and intellectual"},
				{"🏆", "Ambitious and driven"},
				{"🧘", "Calm and reflective"},
				{"🎉", "Fun-loving and energetic"},
				{"🤝", "Supportive and empathetic"},
				{"🧩", "Problem-solver and innovative"},
				{"🕵️", "Mysterious and introspective"},
			},
			MultiSelect:   true,
			MaxSelections: 3,
		},
	}
}
