package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds live sessions. Sessions idle for longer than the idle timeout
// are dropped on access, and the least recently active session is evicted
// when the store is full.
type Store struct {
	idle time.Duration
	max  int
	now  func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewStore creates a store. idle <= 0 disables expiry; max <= 0 removes the cap.
func NewStore(idle time.Duration, max int) *Store {
	return &Store{
		idle:     idle,
		max:      max,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Get returns a live session.
func (st *Store) Get(id uuid.UUID) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	if st.expired(s) {
		delete(st.sessions, id)
		return nil, false
	}
	s.touch()
	return s, true
}

// GetOrCreate returns the session for id, or a new one when id is unknown or
// expired. created reports whether a new session was made.
func (st *Store) GetOrCreate(id uuid.UUID) (s *Session, created bool) {
	if id != uuid.Nil {
		if s, ok := st.Get(id); ok {
			return s, false
		}
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.evictLocked()
	s = newSession(uuid.New(), st.now)
	st.sessions[s.ID] = s
	return s, true
}

// Delete drops the session for id, if any.
func (st *Store) Delete(id uuid.UUID) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len counts stored sessions, including expired ones not yet evicted.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *Store) expired(s *Session) bool {
	return st.idle > 0 && st.now().Sub(s.LastActive()) > st.idle
}

// evictLocked drops expired sessions, then the oldest ones until there is
// room for one more.
func (st *Store) evictLocked() {
	for id, s := range st.sessions {
		if st.expired(s) {
			delete(st.sessions, id)
		}
	}
	for st.max > 0 && len(st.sessions) >= st.max {
		var oldestID uuid.UUID
		var oldest time.Time
		for id, s := range st.sessions {
			if la := s.LastActive(); oldestID == uuid.Nil || la.Before(oldest) {
				oldestID, oldest = id, la
			}
		}
		delete(st.sessions, oldestID)
	}
}
