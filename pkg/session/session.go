package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Conversation roles.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// DefaultWindow is the number of trailing turns reused when building a prompt.
const DefaultWindow = 10

// Turn is one side of a conversational exchange.
type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Session holds the conversation history of a single user. History grows
// without bound; callers read it through Window.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	mu    sync.RWMutex
	turns []Turn
}

// New creates an empty session for userID.
func New(userID string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
	}
}

// Append records a turn and returns it with its timestamp set.
func (s *Session) Append(role, content string) Turn {
	t := Turn{Role: role, Content: content, At: time.Now()}

	s.mu.Lock()
	s.turns = append(s.turns, t)
	s.mu.Unlock()

	return t
}

// Window returns a copy of at most n trailing turns, oldest first.
func (s *Session) Window(n int) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || len(s.turns) == 0 {
		return []Turn{}
	}
	start := len(s.turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(s.turns)-start)
	copy(out, s.turns[start:])
	return out
}

// History returns a copy of every recorded turn.
func (s *Session) History() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of recorded turns.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}
