package domain

import "time"

// Mode selects the session rules.
type Mode string

const (
	// ModeRanked is timed and persists a high score and streak; one life unless a pass is active.
	ModeRanked Mode = "ranked"
	// ModeCasual is untimed and ends only when the question list is exhausted.
	ModeCasual Mode = "casual"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeRanked || m == ModeCasual
}

// MediaKind is the backend's question mode: what the player is shown or played.
type MediaKind string

const (
	KindVisual MediaKind = "visual"
	KindAudio  MediaKind = "audio"
)

// Valid reports whether k is a known media kind.
func (k MediaKind) Valid() bool {
	return k == KindVisual || k == KindAudio
}

// Category is the filter taxonomy negotiated with the backend.
type Category string

const (
	CategoryAll       Category = "all"
	CategoryLevel     Category = "level"
	CategoryGenre     Category = "genre"
	CategoryVersion   Category = "version"
	CategoryChartType Category = "chart_type"
)

// Filter narrows the question pool. Value is ignored for CategoryAll.
type Filter struct {
	Category Category `json:"category"`
	Value    string   `json:"value,omitempty"`
}

// Normalize returns the filter with an empty category treated as "all".
func (f Filter) Normalize() Filter {
	if f.Category == "" || f.Category == CategoryAll {
		return Filter{Category: CategoryAll}
	}
	return f
}

// Valid reports whether the filter uses a known category and carries a value when required.
func (f Filter) Valid() bool {
	switch f.Normalize().Category {
	case CategoryAll:
		return true
	case CategoryLevel, CategoryGenre, CategoryVersion, CategoryChartType:
		return f.Value != ""
	default:
		return false
	}
}

// Question is one multiple-choice prompt; CorrectAnswer matches one of Choices by value.
type Question struct {
	ID            string   `json:"id" yaml:"id"`
	MediaURL      string   `json:"mediaUrl,omitempty" yaml:"mediaUrl"`
	Choices       []string `json:"choices" yaml:"choices"`
	CorrectAnswer string   `json:"correctAnswer" yaml:"correctAnswer"`
}

// HasChoice reports whether choice is one of the question's choices.
func (q Question) HasChoice(choice string) bool {
	for _, c := range q.Choices {
		if c == choice {
			return true
		}
	}
	return false
}

// Phase tags the session state machine.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseLoading          Phase = "loading"
	PhasePlaying          Phase = "playing"
	PhaseAnsweringCorrect Phase = "answering_correct"
	PhaseAnsweringWrong   Phase = "answering_wrong"
	PhaseGameOver         Phase = "game_over"
	PhaseCompleted        Phase = "completed"
	PhaseAbandoned        Phase = "abandoned"
)

// Terminal reports whether no further answers are accepted in p.
func (p Phase) Terminal() bool {
	return p == PhaseGameOver || p == PhaseCompleted || p == PhaseAbandoned
}

// EndReason records how a session reached its terminal phase.
type EndReason string

const (
	EndNone      EndReason = ""
	EndClean     EndReason = "clean"
	EndFailure   EndReason = "failure"
	EndAbandoned EndReason = "abandoned"
)

// Outcome is the evaluation branch returned for an answer or a timeout.
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeGameOver  Outcome = "game_over"
	OutcomeCompleted Outcome = "completed"
)

// AnswerOutcome tells the renderer which animation to drive.
type AnswerOutcome struct {
	QuestionID    string  `json:"questionId"`
	Outcome       Outcome `json:"outcome"`
	Correct       bool    `json:"correct"`
	Selected      *string `json:"selected,omitempty"`
	CorrectAnswer string  `json:"correctAnswer"`
	TimedOut      bool    `json:"timedOut"`
}

// MediaReadiness is the per-question media state.
type MediaReadiness struct {
	Ready    bool `json:"ready"`
	Degraded bool `json:"degraded"`
}

// SessionState is an immutable snapshot for rendering.
type SessionState struct {
	SessionID         string                    `json:"sessionId"`
	Mode              Mode                      `json:"mode"`
	Kind              MediaKind                 `json:"kind"`
	Filter            Filter                    `json:"filter"`
	Phase             Phase                     `json:"phase"`
	Questions         []Question                `json:"questions"`
	CurrentIndex      int                       `json:"currentIndex"`
	Score             int                       `json:"score"`
	AccumulatedStreak int                       `json:"accumulatedStreak"`
	LivesRemaining    int                       `json:"livesRemaining"`
	Media             map[string]MediaReadiness `json:"media"`
	Locked            bool                      `json:"locked"`
	Selected          *string                   `json:"selected,omitempty"`
	Revealed          bool                      `json:"revealed"`
	TimerRunning      bool                      `json:"timerRunning"`
	Deadline          *time.Time                `json:"deadline,omitempty"`
	Terminal          bool                      `json:"terminal"`
	EndReason         EndReason                 `json:"endReason,omitempty"`
	Result            *ScoreSubmissionResult    `json:"result,omitempty"`
	LastError         string                    `json:"lastError,omitempty"`
}

// CurrentQuestion returns the active question, if any.
func (s SessionState) CurrentQuestion() (Question, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

// Submission is the payload handed to a score sink at session end.
type Submission struct {
	Mode              Mode      `json:"mode"`
	Kind              MediaKind `json:"kind"`
	RawScore          int       `json:"score"`
	AccumulatedStreak int       `json:"accumulatedStreak"`
	NextStreak        int       `json:"currentStreak"`
}

// ScoreSubmissionResult echoes the authoritative outcome of a submission.
type ScoreSubmissionResult struct {
	HighScore            int  `json:"highScore"`
	IsNewRecord          bool `json:"isNewRecord"`
	NextStreak           int  `json:"nextStreak"`
	RewardCurrencyEarned int  `json:"rewardCurrencyEarned"`
	DailyRewardEarned    int  `json:"dailyRewardEarned"`
	DailyRewardCap       int  `json:"dailyRewardCap"`
	Degraded             bool `json:"degraded"`
}

// Standing is the per-player, per-mode record: best streak and the streak carried into the next session.
type Standing struct {
	HighScore int `json:"highScore"`
	Streak    int `json:"streak"`
}

// Player identifies who is playing. Anonymous players keep their standing locally.
type Player struct {
	ID            string
	Token         string
	Authenticated bool
}
