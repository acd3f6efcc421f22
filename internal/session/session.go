// Package session keeps chat histories in memory for the lifetime of an
// interactive session.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	ID      uuid.UUID `json:"id"`
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

// Answerer produces the assistant reply for a question.
type Answerer interface {
	Answer(ctx context.Context, question string) string
}

// Session is an append-only conversation.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	askMu      sync.Mutex // keeps each question next to its reply
	mu         sync.RWMutex
	turns      []Turn
	lastActive time.Time
	now        func() time.Time
}

// New starts an empty session.
func New() *Session {
	return newSession(uuid.New(), time.Now)
}

func newSession(id uuid.UUID, now func() time.Time) *Session {
	t := now()
	return &Session{ID: id, CreatedAt: t, lastActive: t, now: now}
}

// Append records a turn and returns it.
func (s *Session) Append(role Role, content string) Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn := Turn{ID: uuid.New(), Role: role, Content: content, Time: s.now()}
	s.turns = append(s.turns, turn)
	s.lastActive = turn.Time
	return turn
}

// Ask appends the question, asks a for the reply and appends that too.
// Concurrent calls on one session are answered one at a time.
func (s *Session) Ask(ctx context.Context, a Answerer, question string) Turn {
	s.askMu.Lock()
	defer s.askMu.Unlock()

	s.Append(RoleUser, question)
	return s.Append(RoleAssistant, a.Answer(ctx, question))
}

// Turns returns a copy of the history, oldest first.
func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = s.now()
	s.mu.Unlock()
}
