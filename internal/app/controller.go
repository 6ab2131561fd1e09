package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"maipocket-quiz/internal/domain"
)

// StartRequest selects what a session plays.
type StartRequest struct {
	Mode   domain.Mode
	Kind   domain.MediaKind
	Filter domain.Filter
}

// Validate rejects unknown modes, kinds and filters.
func (r StartRequest) Validate() error {
	if !r.Mode.Valid() || !r.Kind.Valid() || !r.Filter.Valid() {
		return fmt.Errorf("%w: mode=%q kind=%q filter=%+v", domain.ErrInvalidRequest, r.Mode, r.Kind, r.Filter)
	}
	return nil
}

// Deps are the collaborators a controller drives.
type Deps struct {
	Questions    QuestionSource
	Media        MediaCache
	Scores       ScoreSink
	Entitlements Entitlements
	Clock        Clock
}

// Controller drives one quiz session from question load to a terminal phase
// and submits its score exactly once.
type Controller struct {
	id     string
	player domain.Player
	deps   Deps
	rules  Rules

	mu       sync.Mutex
	s        session
	starting bool
	detached bool
	prevHigh int
	lastErr  string
	result   *domain.ScoreSubmissionResult

	countdown     Timer
	countdownTurn int
	deadline      time.Time
	delay         Timer
	stall         Timer
	stallTurn     int

	subscribers map[chan domain.SessionState]struct{}

	finishOnce sync.Once
	finishRes  domain.ScoreSubmissionResult
	onResult   func()
}

func NewController(id string, player domain.Player, deps Deps, rules Rules) *Controller {
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	return &Controller{
		id:          id,
		player:      player,
		deps:        deps,
		rules:       rules,
		s:           session{phase: domain.PhaseIdle},
		subscribers: make(map[chan domain.SessionState]struct{}),
	}
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// Owner returns the id of the player the session was started for.
func (c *Controller) Owner() string { return c.player.ID }

// OnResult registers f to run once the submission result is stored. It is not
// called for abandoned sessions. Register it before Start.
func (c *Controller) OnResult(f func()) {
	c.mu.Lock()
	c.onResult = f
	c.mu.Unlock()
}

// Start loads the questions, resolves the starting streak and lives, and begins warming media.
// On ErrNotEnoughContent no session is started and Start may be called again with another filter.
func (c *Controller) Start(ctx context.Context, req StartRequest) (domain.SessionState, error) {
	req.Filter = req.Filter.Normalize()
	if err := req.Validate(); err != nil {
		return c.State(), err
	}

	c.mu.Lock()
	if c.starting || c.s.phase != domain.PhaseIdle {
		c.mu.Unlock()
		return c.State(), domain.ErrSessionStarted
	}
	c.starting = true
	c.mu.Unlock()

	questions, standing, lives, err := c.prepare(ctx, req)

	c.mu.Lock()
	c.starting = false
	if err != nil {
		c.lastErr = err.Error()
		state := c.snapshotLocked()
		c.mu.Unlock()
		return state, err
	}
	if c.detached {
		c.mu.Unlock()
		return c.State(), domain.ErrSessionAbandoned
	}
	c.s = newSession(req.Mode, req.Kind, req.Filter, questions, standing.Streak, lives)
	c.prevHigh = standing.HighScore
	c.lastErr = ""
	urls := c.s.mediaURLs()
	c.armLocked()
	state := c.broadcastLocked()
	c.mu.Unlock()

	log.Printf("session %s started: mode=%s kind=%s filter=%s/%s questions=%d streak=%d lives=%d",
		c.id, req.Mode, req.Kind, req.Filter.Category, req.Filter.Value, len(questions), standing.Streak, lives)

	go c.consumeMedia(c.deps.Media.Warm(context.WithoutCancel(ctx), urls))
	return state, nil
}

func (c *Controller) prepare(ctx context.Context, req StartRequest) ([]domain.Question, domain.Standing, int, error) {
	sizing := c.rules.For(req.Mode)
	questions, err := c.deps.Questions.Fetch(ctx, FetchRequest{
		Mode:   req.Mode,
		Kind:   req.Kind,
		Filter: req.Filter,
		Count:  sizing.Questions,
	})
	if err != nil {
		return nil, domain.Standing{}, 0, err
	}
	questions = sanitizeQuestions(questions, req.Kind)
	if len(questions) < sizing.MinQuestions {
		return nil, domain.Standing{}, 0, fmt.Errorf("%w: got %d, need %d", domain.ErrNotEnoughContent, len(questions), sizing.MinQuestions)
	}

	standing, err := c.deps.Scores.Standing(ctx, c.player, req.Mode, req.Kind)
	if err != nil {
		log.Printf("session %s: starting streak unavailable, starting from zero: %v", c.id, err)
		standing = domain.Standing{}
	}

	lives := 0
	if req.Mode == domain.ModeRanked {
		lives = c.rules.BaseLives
		if c.deps.Entitlements != nil {
			active, err := c.deps.Entitlements.LifePassActive(ctx, c.player)
			if err != nil {
				log.Printf("session %s: life pass lookup failed, using base lives: %v", c.id, err)
			} else if active {
				lives = c.rules.PassLives
			}
		}
	}
	return questions, standing, lives, nil
}

// SubmitAnswer evaluates choice against the current question. It returns as soon as the
// evaluation is decided; the reveal and advance delays run afterwards.
func (c *Controller) SubmitAnswer(choice string) (domain.AnswerOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.s.canAnswer(); err != nil {
		return domain.AnswerOutcome{}, err
	}
	if q, _ := c.s.current(); !q.HasChoice(choice) {
		return domain.AnswerOutcome{}, domain.ErrUnknownChoice
	}
	return c.applyLocked(&choice, false), nil
}

// Timeout resolves the current ranked question as wrong with nothing selected.
func (c *Controller) Timeout() (domain.AnswerOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.s.phase != domain.PhaseIdle && c.s.mode != domain.ModeRanked {
		return domain.AnswerOutcome{}, domain.ErrUntimedMode
	}
	if err := c.s.canAnswer(); err != nil {
		return domain.AnswerOutcome{}, err
	}
	return c.applyLocked(nil, true), nil
}

func (c *Controller) applyLocked(selected *string, timedOut bool) domain.AnswerOutcome {
	var out domain.AnswerOutcome
	c.s, out = c.s.answer(selected, timedOut)
	turn := c.s.turn

	switch {
	case out.Correct && c.rules.CorrectAdvanceDelay <= 0:
		c.resolveLocked()
	case out.Correct:
		c.delay = c.deps.Clock.AfterFunc(c.rules.CorrectAdvanceDelay, func() { c.onResolve(turn) })
	default:
		c.delay = c.deps.Clock.AfterFunc(c.rules.WrongRevealDelay, func() { c.onReveal(turn) })
	}

	c.armLocked()
	c.broadcastLocked()
	return out
}

func (c *Controller) onReveal(turn int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detached || c.s.turn != turn {
		return
	}
	c.s = c.s.reveal()
	c.delay = c.deps.Clock.AfterFunc(c.rules.CorrectShowDelay, func() { c.onResolve(turn) })
	c.broadcastLocked()
}

func (c *Controller) onResolve(turn int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detached || c.s.turn != turn {
		return
	}
	c.delay = nil
	c.resolveLocked()
	c.armLocked()
	c.broadcastLocked()
}

func (c *Controller) resolveLocked() {
	c.s = c.s.resolve()
	if !c.s.terminal() {
		return
	}
	c.stopTimersLocked()
	log.Printf("session %s ended: reason=%s score=%d streak=%d", c.id, c.s.end, c.s.score, c.s.streak)
	go func() {
		if _, err := c.Finish(context.Background()); err != nil {
			log.Printf("session %s: finish: %v", c.id, err)
		}
	}()
}

func (c *Controller) onCountdown(turn int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detached || c.countdownTurn != turn || c.s.turn != turn || !c.s.timerRunning() {
		return
	}
	c.countdown = nil
	c.applyLocked(nil, true)
}

func (c *Controller) onStall(turn int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detached || c.stallTurn != turn || c.s.turn != turn || c.s.phase != domain.PhaseLoading {
		return
	}
	c.stall = nil
	if q, ok := c.s.current(); ok {
		log.Printf("session %s: media for %s stalled, playing degraded", c.id, q.ID)
		c.s = c.s.degrade(q.ID)
	}
	c.armLocked()
	c.broadcastLocked()
}

func (c *Controller) consumeMedia(updates <-chan MediaStatus) {
	for status := range updates {
		c.mu.Lock()
		if !c.detached {
			if !status.Ready {
				log.Printf("session %s: media %s failed, using placeholder", c.id, status.URL)
			}
			c.s = c.s.markMedia(status.URL, status.Ready)
			c.armLocked()
			c.broadcastLocked()
		}
		c.mu.Unlock()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detached {
		return
	}
	c.s = c.s.degradeUnreported()
	c.armLocked()
	c.broadcastLocked()
}

// armLocked makes the timers match the state: the countdown runs exactly while
// the ranked question is playable and unanswered, the stall guard while it is loading.
func (c *Controller) armLocked() {
	turn := c.s.turn

	if c.countdown != nil && (c.countdownTurn != turn || !c.s.timerRunning()) {
		c.countdown.Stop()
		c.countdown = nil
		c.deadline = time.Time{}
	}
	if c.countdown == nil && c.s.timerRunning() && c.rules.QuestionTimeLimit > 0 {
		c.countdownTurn = turn
		c.deadline = c.deps.Clock.Now().Add(c.rules.QuestionTimeLimit)
		c.countdown = c.deps.Clock.AfterFunc(c.rules.QuestionTimeLimit, func() { c.onCountdown(turn) })
	}

	loading := c.s.phase == domain.PhaseLoading
	if c.stall != nil && (c.stallTurn != turn || !loading) {
		c.stall.Stop()
		c.stall = nil
	}
	if c.stall == nil && loading && c.rules.MediaStallTimeout > 0 {
		c.stallTurn = turn
		c.stall = c.deps.Clock.AfterFunc(c.rules.MediaStallTimeout, func() { c.onStall(turn) })
	}
}

func (c *Controller) stopTimersLocked() {
	for _, t := range []Timer{c.countdown, c.delay, c.stall} {
		if t != nil {
			t.Stop()
		}
	}
	c.countdown, c.delay, c.stall = nil, nil, nil
	c.deadline = time.Time{}
}

// Finish submits the session's score once. Concurrent and repeated calls share the
// first submission. A transport failure yields a degraded result and no error.
func (c *Controller) Finish(ctx context.Context) (domain.ScoreSubmissionResult, error) {
	c.mu.Lock()
	phase := c.s.phase
	c.mu.Unlock()

	switch {
	case phase == domain.PhaseAbandoned:
		return domain.ScoreSubmissionResult{}, domain.ErrSessionAbandoned
	case !phase.Terminal():
		return domain.ScoreSubmissionResult{}, domain.ErrSessionNotTerminal
	}

	c.finishOnce.Do(func() {
		c.finishRes = c.submit(context.WithoutCancel(ctx))
	})
	return c.finishRes, nil
}

func (c *Controller) submit(ctx context.Context) domain.ScoreSubmissionResult {
	c.mu.Lock()
	sub := c.s.submission()
	prevHigh := c.prevHigh
	c.mu.Unlock()

	res, err := c.deps.Scores.Submit(ctx, c.player, sub)
	if err != nil {
		log.Printf("session %s: score submission failed, keeping local result: %v", c.id, err)
		res.Degraded = true
		res.NextStreak = sub.NextStreak
		res.RewardCurrencyEarned, res.DailyRewardEarned, res.DailyRewardCap = 0, 0, 0
		if res.HighScore == 0 {
			res.HighScore = prevHigh
		}
	}
	res.IsNewRecord = sub.AccumulatedStreak > prevHigh

	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return res
	}
	c.result = &res
	if err != nil {
		c.lastErr = err.Error()
	}
	c.broadcastLocked()
	onResult := c.onResult
	c.mu.Unlock()

	if onResult != nil {
		onResult()
	}
	return res
}

// Abandon detaches the session from its renderer: timers stop, subscriptions close,
// and late media or submission results no longer touch the state.
func (c *Controller) Abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detached {
		return
	}
	c.s = c.s.abandon()
	c.stopTimersLocked()
	c.detached = true
	for ch := range c.subscribers {
		delete(c.subscribers, ch)
		close(ch)
	}
}

// State returns the current snapshot.
func (c *Controller) State() domain.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel of snapshots, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (c *Controller) Subscribe() (<-chan domain.SessionState, func()) {
	ch := make(chan domain.SessionState, 8)

	c.mu.Lock()
	if c.detached {
		ch <- c.snapshotLocked()
		close(ch)
		c.mu.Unlock()
		return ch, func() {}
	}
	c.subscribers[ch] = struct{}{}
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Controller) broadcastLocked() domain.SessionState {
	state := c.snapshotLocked()
	if c.detached {
		return state
	}
	for ch := range c.subscribers {
		select {
		case ch <- state:
		default:
			// slow renderer: drop its oldest snapshot
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
	return state
}

func (c *Controller) snapshotLocked() domain.SessionState {
	s := c.s
	state := domain.SessionState{
		SessionID:         c.id,
		Mode:              s.mode,
		Kind:              s.kind,
		Filter:            s.filter,
		Phase:             s.phase,
		Questions:         s.questions,
		CurrentIndex:      s.index,
		Score:             s.score,
		AccumulatedStreak: s.streak,
		LivesRemaining:    s.lives,
		Media:             cloneMedia(s.media),
		Locked:            s.locked,
		Selected:          s.selected,
		Revealed:          s.revealed,
		TimerRunning:      c.countdown != nil,
		Terminal:          s.terminal(),
		EndReason:         s.end,
		Result:            c.result,
		LastError:         c.lastErr,
	}
	if c.countdown != nil {
		deadline := c.deadline
		state.Deadline = &deadline
	}
	return state
}
