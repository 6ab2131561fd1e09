package app

import (
	"context"

	"github.com/google/uuid"

	"maipocket-quiz/internal/domain"
)

// SessionRepository abstracts where live controllers are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(c *Controller)
	Get(sessionID string) (*Controller, bool)
	Delete(sessionID string)
}

// SessionService contains the session use cases exposed to transports.
// Every call after Start is scoped to the player who started the session;
// other callers get domain.ErrSessionNotFound.
type SessionService struct {
	sessions SessionRepository
	deps     Deps
	rules    Rules
	newID    func() string
}

func NewSessionService(store SessionRepository, deps Deps, rules Rules) *SessionService {
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	return &SessionService{sessions: store, deps: deps, rules: rules, newID: uuid.NewString}
}

// Start creates a controller for player and starts it. Nothing is registered when start fails,
// so the player can retry with a different filter.
func (s *SessionService) Start(ctx context.Context, player domain.Player, req StartRequest) (domain.SessionState, error) {
	c := NewController(s.newID(), player, s.deps, s.rules)
	id := c.ID()
	c.OnResult(func() { s.evict(id) })
	state, err := c.Start(ctx, req)
	if err != nil {
		return state, err
	}
	s.sessions.Put(c)
	return state, nil
}

// evict drops a finished session once its result has been readable for ResultRetention.
func (s *SessionService) evict(sessionID string) {
	if s.rules.ResultRetention <= 0 {
		s.sessions.Delete(sessionID)
		return
	}
	s.deps.Clock.AfterFunc(s.rules.ResultRetention, func() { s.sessions.Delete(sessionID) })
}

func (s *SessionService) lookup(sessionID string, player domain.Player) (*Controller, error) {
	c, ok := s.sessions.Get(sessionID)
	if !ok || c.Owner() != player.ID {
		return nil, domain.ErrSessionNotFound
	}
	return c, nil
}

// State returns the snapshot of a session.
func (s *SessionService) State(_ context.Context, player domain.Player, sessionID string) (domain.SessionState, error) {
	c, err := s.lookup(sessionID, player)
	if err != nil {
		return domain.SessionState{}, err
	}
	return c.State(), nil
}

// Answer submits a choice for the current question.
func (s *SessionService) Answer(_ context.Context, player domain.Player, sessionID, choice string) (domain.AnswerOutcome, domain.SessionState, error) {
	c, err := s.lookup(sessionID, player)
	if err != nil {
		return domain.AnswerOutcome{}, domain.SessionState{}, err
	}
	out, err := c.SubmitAnswer(choice)
	return out, c.State(), err
}

// Finish returns the session's submission result, submitting it if it has not been yet.
func (s *SessionService) Finish(ctx context.Context, player domain.Player, sessionID string) (domain.ScoreSubmissionResult, error) {
	c, err := s.lookup(sessionID, player)
	if err != nil {
		return domain.ScoreSubmissionResult{}, err
	}
	return c.Finish(ctx)
}

// Subscribe returns a channel that receives state updates for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *SessionService) Subscribe(_ context.Context, player domain.Player, sessionID string) (<-chan domain.SessionState, func(), error) {
	c, err := s.lookup(sessionID, player)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := c.Subscribe()
	return ch, cancel, nil
}

// Abandon detaches the session and drops it from the repository.
func (s *SessionService) Abandon(_ context.Context, player domain.Player, sessionID string) error {
	c, err := s.lookup(sessionID, player)
	if err != nil {
		return err
	}
	c.Abandon()
	s.sessions.Delete(sessionID)
	return nil
}
