package internal

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store owns the session collection and the active-session pointer.
// All methods are safe for concurrent use; each one is atomic.
type Store struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	activeID  string
	allocator *Allocator
	now       func() time.Time
	newID     func() string
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithClock overrides the time source used for createdAt and message timestamps
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how session IDs are generated
func WithIDGenerator(newID func() string) StoreOption {
	return func(s *Store) { s.newID = newID }
}

// WithAllocator overrides the identity allocator
func WithAllocator(a *Allocator) StoreOption {
	return func(s *Store) { s.allocator = a }
}

// NewStore creates an empty store
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sessions:  make(map[string]*Session),
		allocator: DefaultAllocator(),
		now:       time.Now,
		newID:     newSessionID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newSessionID() string {
	return "session_" + uuid.NewString()
}

// CreateSession creates a session with a fresh user identity and makes it active
func (s *Store) CreateSession() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked().clone()
}

func (s *Store) createLocked() *Session {
	id := s.newID()
	for _, exists := s.sessions[id]; exists; _, exists = s.sessions[id] {
		id = s.newID()
	}

	session := &Session{
		ID:        id,
		Name:      DefaultSessionName,
		UserID:    s.allocator.Allocate(s.identityInUseLocked),
		Messages:  []Message{},
		CreatedAt: s.now(),
	}
	s.sessions[id] = session
	s.activeID = id
	LogDebug("created session %s (user %d)", id, session.UserID)
	return session
}

func (s *Store) identityInUseLocked(userID int) bool {
	for _, session := range s.sessions {
		if session.UserID == userID {
			return true
		}
	}
	return false
}

// SwitchActive makes id the active session. Unknown IDs are ignored.
func (s *Store) SwitchActive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		s.activeID = id
	}
}

// Active returns a snapshot of the active session
func (s *Store) Active() (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[s.activeID]
	if !ok {
		return nil, false
	}
	return session.clone(), true
}

// ActiveID returns the ID of the active session, or "" when the store is empty
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Get returns a snapshot of the session with the given ID
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return session.clone(), true
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// DeleteSession removes a session locally. It must only be called once the
// backend has confirmed the delete. A deleted active session hands activity
// to the most recently created survivor; deleting the last session creates
// a replacement. It reports whether id was known.
func (s *Store) DeleteSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	LogDebug("deleted session %s", id)

	if len(s.sessions) == 0 {
		s.createLocked()
		return true
	}
	if s.activeID == id {
		s.activeID = s.sortedLocked()[0].ID
	}
	return true
}

// AppendMessage appends a message to a session. The first user message
// names the session; later messages never rename it.
func (s *Store) AppendMessage(id, content string, sender Sender) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return Message{}, &SessionNotFoundError{ID: id}
	}

	msg := Message{Content: content, Sender: sender, Timestamp: s.now()}
	session.Messages = append(session.Messages, msg)

	if sender == SenderUser && !session.named {
		session.Name = SessionName(content)
		session.named = true
	}
	return msg, nil
}

// ResetMessages drops a session's history after the backend cleared it.
// The session keeps its name.
func (s *Store) ResetMessages(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return &SessionNotFoundError{ID: id}
	}
	session.Messages = []Message{}
	return nil
}

// ListSessions returns snapshots ordered by createdAt descending, ties
// broken by reverse lexicographic ID
func (s *Store) ListSessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := s.sortedLocked()
	out := make([]*Session, len(sorted))
	for i, session := range sorted {
		out[i] = session.clone()
	}
	return out
}

func (s *Store) sortedLocked() []*Session {
	sorted := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sorted = append(sorted, session)
	}
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return sorted
}

// Load replaces the store contents with sessions reported by the backend.
// The most recent session becomes active; an empty list yields a fresh
// default session.
func (s *Store) Load(sessions []*Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]*Session, len(sessions))
	s.activeID = ""
	for _, session := range sessions {
		if session == nil || session.ID == "" {
			continue
		}
		c := session.clone()
		if c.Messages == nil {
			c.Messages = []Message{}
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = s.now()
		}
		s.sessions[c.ID] = c
	}

	if len(s.sessions) == 0 {
		s.createLocked()
		return
	}
	s.activeID = s.sortedLocked()[0].ID
	LogDebug("loaded %d session(s), active %s", len(s.sessions), s.activeID)
}
