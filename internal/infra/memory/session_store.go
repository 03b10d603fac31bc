package memory

import (
	"sync"

	"audit-readiness-service/internal/app"
)

// SessionStore is an in-memory implementation of app.TeamSessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.TeamSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
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
	}
}
