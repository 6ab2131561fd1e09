package app

import (
	"time"

	"maipocket-quiz/internal/domain"
)

// ModeRules sizes a session for one mode.
type ModeRules struct {
	// Questions is how many questions are requested from the source.
	Questions int
	// MinQuestions is the shortest list a session may start with.
	MinQuestions int
}

// Rules carries the session timing contract and per-mode sizing.
type Rules struct {
	Ranked ModeRules
	Casual ModeRules

	QuestionTimeLimit   time.Duration
	WrongRevealDelay    time.Duration
	CorrectShowDelay    time.Duration
	CorrectAdvanceDelay time.Duration
	MediaStallTimeout   time.Duration

	BaseLives int
	PassLives int

	// ResultRetention is how long a finished session stays readable before it is evicted.
	ResultRetention time.Duration
}

// DefaultRules mirrors the app's timings: ~1s before "wrong", ~2s showing the correct choice.
func DefaultRules() Rules {
	return Rules{
		Ranked:            ModeRules{Questions: 20, MinQuestions: 5},
		Casual:            ModeRules{Questions: 10, MinQuestions: 10},
		QuestionTimeLimit: 15 * time.Second,
		WrongRevealDelay:  time.Second,
		CorrectShowDelay:  2 * time.Second,
		MediaStallTimeout: 10 * time.Second,
		BaseLives:         1,
		PassLives:         3,
		ResultRetention:   5 * time.Minute,
	}
}

// For returns the sizing for mode.
func (r Rules) For(mode domain.Mode) ModeRules {
	if mode == domain.ModeCasual {
		return r.Casual
	}
	return r.Ranked
}
