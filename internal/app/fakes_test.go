package app_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/domain"
)

// manualClock fires timers only when advanced.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 11, 22, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) app.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward, firing due timers in order outside the clock's lock.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		due := make([]*manualTimer, 0, len(c.timers))
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.at.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
		next := due[0]
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
	}
}

// staticSource serves fixed question lists keyed by filter value.
type staticSource struct {
	mu       sync.Mutex
	byFilter map[string][]domain.Question
	err      error
	requests []app.FetchRequest
}

func (s *staticSource) Fetch(_ context.Context, req app.FetchRequest) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.byFilter[req.Filter.Value], nil
}

// readyMedia reports every URL as cached right away, except those listed in failed.
type readyMedia struct {
	failed map[string]bool
}

func (m readyMedia) Warm(_ context.Context, urls []string) <-chan app.MediaStatus {
	ch := make(chan app.MediaStatus, len(urls))
	for _, u := range urls {
		ch <- app.MediaStatus{URL: u, Ready: !m.failed[u]}
	}
	close(ch)
	return ch
}

// manualMedia hands the status channel to the test.
type manualMedia struct {
	ch chan app.MediaStatus
}

func newManualMedia() *manualMedia {
	return &manualMedia{ch: make(chan app.MediaStatus, 64)}
}

func (m *manualMedia) Warm(context.Context, []string) <-chan app.MediaStatus {
	return m.ch
}

// recordingSink keeps standings in memory and counts submissions.
type recordingSink struct {
	mu          sync.Mutex
	standing    domain.Standing
	standingErr error
	submitErr   error
	block       chan struct{}
	submissions []domain.Submission
}

func (s *recordingSink) Submit(_ context.Context, _ domain.Player, sub domain.Submission) (domain.ScoreSubmissionResult, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, sub)
	if s.submitErr != nil {
		return domain.ScoreSubmissionResult{}, s.submitErr
	}
	if sub.AccumulatedStreak > s.standing.HighScore {
		s.standing.HighScore = sub.AccumulatedStreak
	}
	s.standing.Streak = sub.NextStreak
	return domain.ScoreSubmissionResult{
		HighScore:            s.standing.HighScore,
		NextStreak:           sub.NextStreak,
		RewardCurrencyEarned: 5,
		DailyRewardEarned:    5,
		DailyRewardCap:       50,
	}, nil
}

func (s *recordingSink) Standing(context.Context, domain.Player, domain.Mode, domain.MediaKind) (domain.Standing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.standingErr != nil {
		return domain.Standing{}, s.standingErr
	}
	return s.standing, nil
}

func (s *recordingSink) calls() []domain.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Submission, len(s.submissions))
	copy(out, s.submissions)
	return out
}

func makeQuestions(n int) []domain.Question {
	questions := make([]domain.Question, 0, n)
	for i := 1; i <= n; i++ {
		questions = append(questions, domain.Question{
			ID:            fmt.Sprintf("q%d", i),
			MediaURL:      fmt.Sprintf("https://cdn.test/jacket/%d.png", i),
			Choices:       []string{fmt.Sprintf("song-%d", i), "decoy-a", "decoy-b", "decoy-c"},
			CorrectAnswer: fmt.Sprintf("song-%d", i),
		})
	}
	return questions
}

func testRules() app.Rules {
	rules := app.DefaultRules()
	rules.Ranked = app.ModeRules{Questions: 5, MinQuestions: 5}
	rules.Casual = app.ModeRules{Questions: 10, MinQuestions: 10}
	return rules
}

type harness struct {
	clock *manualClock
	sink  *recordingSink
	c     *app.Controller
}

func newHarness(t *testing.T, questions []domain.Question, media app.MediaCache, pass bool) *harness {
	t.Helper()
	h := &harness{clock: newManualClock(), sink: &recordingSink{}}
	deps := app.Deps{
		Questions:    &staticSource{byFilter: map[string][]domain.Question{"": questions}},
		Media:        media,
		Scores:       h.sink,
		Entitlements: app.StaticEntitlements(pass),
		Clock:        h.clock,
	}
	h.c = app.NewController("session-1", domain.Player{ID: "p1", Authenticated: true}, deps, testRules())
	return h
}

func waitFor(t *testing.T, c *app.Controller, what string, cond func(domain.SessionState) bool) domain.SessionState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st := c.State()
		if cond(st) {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s: phase=%s index=%d", what, st.Phase, st.CurrentIndex)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func playingAt(i int) func(domain.SessionState) bool {
	return func(st domain.SessionState) bool {
		return st.Phase == domain.PhasePlaying && st.CurrentIndex == i
	}
}

func isTerminal(st domain.SessionState) bool { return st.Terminal }
