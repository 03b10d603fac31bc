package redis

import (
	"context"
	"sync"
	"time"

	"audit-readiness-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.TeamSessionRepository.
// Sessions live in process so votes are serialized by the session lock;
// Redis only carries a liveness marker per team.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.TeamSession
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.TeamSession),
	}
}

func (s *SessionStore) GetOrCreate(teamID string) *app.TeamSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[teamID]; ok {
		return session
	}
	session := app.NewTeamSession(teamID)
	s.sessions[teamID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(teamID), "1", s.ttl).Err()
	return session
}

func (s *SessionStore) Get(teamID string) (*app.TeamSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[teamID]
	return session, ok
}

func (s *SessionStore) DeleteIfEmpty(teamID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[teamID]
	if !ok {
		return
	}
	if session.IsEmpty() {
		delete(s.sessions, teamID)
		_ = s.client.Del(context.Background(), s.key(teamID)).Err()
	}
}

func (s *SessionStore) key(teamID string) string {
	return "team:session:" + teamID
}
