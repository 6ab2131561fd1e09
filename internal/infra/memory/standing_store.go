package memory

import (
	"context"
	"sync"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/domain"
)

// StandingStore keeps standings for the lifetime of the process.
type StandingStore struct {
	mu        sync.RWMutex
	standings map[app.StandingKey]domain.Standing
}

func NewStandingStore() *StandingStore {
	return &StandingStore{standings: make(map[app.StandingKey]domain.Standing)}
}

func (s *StandingStore) Load(_ context.Context, key app.StandingKey) (domain.Standing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.standings[key], nil
}

func (s *StandingStore) Save(_ context.Context, key app.StandingKey, standing domain.Standing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.standings[key] = standing
	return nil
}
