package app

import (
	"log"

	"maipocket-quiz/internal/domain"
)

// resolution is what happens to a locked question once its delay elapses.
type resolution int

const (
	resolveNone resolution = iota
	resolveAdvance
	resolveComplete
	resolveGameOver
)

// session is the pure state of one quiz. Every transition returns a new value;
// timers and I/O live in Controller.
type session struct {
	mode      domain.Mode
	kind      domain.MediaKind
	filter    domain.Filter
	questions []domain.Question
	index     int
	score     int
	streak    int
	lives     int
	media     map[string]domain.MediaReadiness
	byURL     map[string][]string
	phase     domain.Phase
	locked    bool
	selected  *string
	revealed  bool
	next      resolution
	end       domain.EndReason
	// turn changes whenever the active question or its lock changes; timers armed for an older turn are stale.
	turn int
}

func newSession(mode domain.Mode, kind domain.MediaKind, filter domain.Filter, questions []domain.Question, streak, lives int) session {
	s := session{
		mode:      mode,
		kind:      kind,
		filter:    filter,
		questions: questions,
		streak:    streak,
		lives:     lives,
		media:     make(map[string]domain.MediaReadiness, len(questions)),
		byURL:     make(map[string][]string, len(questions)),
		phase:     domain.PhaseLoading,
		turn:      1,
	}
	for _, q := range questions {
		if q.MediaURL == "" {
			s.media[q.ID] = domain.MediaReadiness{Ready: true}
			continue
		}
		s.media[q.ID] = domain.MediaReadiness{}
		s.byURL[q.MediaURL] = append(s.byURL[q.MediaURL], q.ID)
	}
	return s.settle()
}

func (s session) terminal() bool {
	return s.phase.Terminal()
}

func (s session) last() bool {
	return s.index == len(s.questions)-1
}

func (s session) current() (domain.Question, bool) {
	if s.index < 0 || s.index >= len(s.questions) {
		return domain.Question{}, false
	}
	return s.questions[s.index], true
}

func (s session) currentReady() bool {
	q, ok := s.current()
	if !ok {
		return false
	}
	return s.media[q.ID].Ready
}

// settle moves a loading question into play once its media is ready.
func (s session) settle() session {
	if s.phase == domain.PhaseLoading && s.currentReady() {
		s.phase = domain.PhasePlaying
	}
	return s
}

// timerRunning is the ranked countdown invariant.
func (s session) timerRunning() bool {
	return s.mode == domain.ModeRanked && s.phase == domain.PhasePlaying && !s.locked && s.currentReady()
}

// canAnswer checks the answer preconditions.
func (s session) canAnswer() error {
	switch {
	case s.phase == domain.PhaseIdle:
		return domain.ErrSessionNotStarted
	case s.terminal():
		return domain.ErrSessionTerminal
	case s.locked:
		return domain.ErrAnswerLocked
	case !s.currentReady():
		return domain.ErrMediaNotReady
	}
	return nil
}

// answer evaluates selected against the current question. A nil selection is a timeout.
func (s session) answer(selected *string, timedOut bool) (session, domain.AnswerOutcome) {
	q, _ := s.current()
	s.locked = true
	s.turn++
	if selected != nil {
		choice := *selected
		s.selected = &choice
	}

	out := domain.AnswerOutcome{
		QuestionID:    q.ID,
		Selected:      s.selected,
		CorrectAnswer: q.CorrectAnswer,
		TimedOut:      timedOut,
	}

	if selected != nil && *selected == q.CorrectAnswer {
		s.score++
		s.streak++
		s.phase = domain.PhaseAnsweringCorrect
		out.Correct = true
		if s.last() {
			s.next = resolveComplete
			out.Outcome = domain.OutcomeCompleted
		} else {
			s.next = resolveAdvance
			out.Outcome = domain.OutcomeCorrect
		}
		return s, out
	}

	s.phase = domain.PhaseAnsweringWrong
	switch {
	case s.mode == domain.ModeCasual, s.lives > 1:
		if s.mode == domain.ModeRanked {
			s.lives--
		}
		if s.last() {
			s.next = resolveComplete
			out.Outcome = domain.OutcomeCompleted
		} else {
			s.next = resolveAdvance
			out.Outcome = domain.OutcomeIncorrect
		}
	default:
		s.lives = 0
		s.next = resolveGameOver
		out.Outcome = domain.OutcomeGameOver
	}
	return s, out
}

// reveal shows the correct choice after a wrong answer.
func (s session) reveal() session {
	if s.phase == domain.PhaseAnsweringWrong {
		s.revealed = true
	}
	return s
}

// resolve applies the pending resolution once the answer delay has elapsed.
func (s session) resolve() session {
	switch s.next {
	case resolveAdvance:
		s.index++
		s.locked = false
		s.selected = nil
		s.revealed = false
		s.phase = domain.PhaseLoading
		s = s.settle()
	case resolveComplete:
		s.index = len(s.questions)
		s.phase = domain.PhaseCompleted
		s.end = domain.EndClean
	case resolveGameOver:
		s.phase = domain.PhaseGameOver
		s.end = domain.EndFailure
	default:
		return s
	}
	s.next = resolveNone
	s.turn++
	return s
}

// abandon ends a session the player walked away from.
func (s session) abandon() session {
	if s.terminal() {
		return s
	}
	s.phase = domain.PhaseAbandoned
	s.end = domain.EndAbandoned
	s.next = resolveNone
	s.turn++
	return s
}

// markMedia records a cache report. A failed URL still makes its questions playable, degraded.
func (s session) markMedia(url string, ok bool) session {
	ids := s.byURL[url]
	if len(ids) == 0 {
		return s
	}
	s.media = cloneMedia(s.media)
	for _, id := range ids {
		if s.media[id].Ready {
			continue
		}
		s.media[id] = domain.MediaReadiness{Ready: true, Degraded: !ok}
	}
	return s.settle()
}

// degrade marks one question ready-but-degraded.
func (s session) degrade(questionID string) session {
	if s.media[questionID].Ready {
		return s
	}
	s.media = cloneMedia(s.media)
	s.media[questionID] = domain.MediaReadiness{Ready: true, Degraded: true}
	return s.settle()
}

// degradeUnreported marks every question still warming as degraded; used when the cache stops reporting.
func (s session) degradeUnreported() session {
	for _, q := range s.questions {
		if !s.media[q.ID].Ready {
			s = s.degrade(q.ID)
		}
	}
	return s
}

// nextStreak is what the following session starts from: kept only after a clean finish.
func (s session) nextStreak() int {
	if s.end == domain.EndClean {
		return s.streak
	}
	return 0
}

func (s session) submission() domain.Submission {
	return domain.Submission{
		Mode:              s.mode,
		Kind:              s.kind,
		RawScore:          s.score,
		AccumulatedStreak: s.streak,
		NextStreak:        s.nextStreak(),
	}
}

func (s session) mediaURLs() []string {
	urls := make([]string, 0, len(s.byURL))
	seen := make(map[string]struct{}, len(s.byURL))
	for _, q := range s.questions {
		if q.MediaURL == "" {
			continue
		}
		if _, ok := seen[q.MediaURL]; ok {
			continue
		}
		seen[q.MediaURL] = struct{}{}
		urls = append(urls, q.MediaURL)
	}
	return urls
}

func cloneMedia(in map[string]domain.MediaReadiness) map[string]domain.MediaReadiness {
	out := make(map[string]domain.MediaReadiness, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// sanitizeQuestions drops records the engine cannot play.
func sanitizeQuestions(questions []domain.Question, kind domain.MediaKind) []domain.Question {
	out := make([]domain.Question, 0, len(questions))
	seen := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		if reason := invalidReason(q, kind); reason != "" {
			log.Printf("dropping question %q: %s", q.ID, reason)
			continue
		}
		if _, dup := seen[q.ID]; dup {
			log.Printf("dropping question %q: duplicate id", q.ID)
			continue
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	return out
}

func invalidReason(q domain.Question, kind domain.MediaKind) string {
	if q.ID == "" {
		return "missing id"
	}
	if len(q.Choices) < 2 {
		return "fewer than two choices"
	}
	unique := make(map[string]struct{}, len(q.Choices))
	for _, c := range q.Choices {
		if _, dup := unique[c]; dup {
			return "duplicate choice"
		}
		unique[c] = struct{}{}
	}
	if !q.HasChoice(q.CorrectAnswer) {
		return "answer not among choices"
	}
	if q.MediaURL == "" && kind.Valid() {
		return "missing media"
	}
	return ""
}
