package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"maipocket-quiz/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Controllers own timers and subscriber channels, so they stay in a local map.
//   - Redis marks session liveness with a TTL so other instances and operators can
//     see which sessions are active on which node.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	node     string
	mu       sync.RWMutex
	sessions map[string]*app.Controller
}

func NewSessionStore(client *redis.Client, ttl time.Duration, node string) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		node:     node,
		sessions: make(map[string]*app.Controller),
	}
}

func (s *SessionStore) Put(c *app.Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[c.ID()] = c
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(c.ID()), s.node, s.ttl).Err()
}

// Get returns the local controller and refreshes its liveness marker.
func (s *SessionStore) Get(sessionID string) (*app.Controller, bool) {
	s.mu.RLock()
	c, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok && s.ttl > 0 {
		_ = s.client.Expire(context.Background(), s.key(sessionID), s.ttl).Err()
	}
	return c, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return
	}
	delete(s.sessions, sessionID)
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
