package internal

import (
	"fmt"
	"time"
)

// TestEpoch is the fixed start time used by test clocks
var TestEpoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// NewTestClock returns a clock that advances one second per call, starting at TestEpoch
func NewTestClock() func() time.Time {
	t := TestEpoch
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

// NewSequentialIDs returns an ID generator producing session_001, session_002, ...
func NewSequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("session_%03d", n)
	}
}

// NewTestStore creates a store with a deterministic clock and IDs
func NewTestStore(opts ...StoreOption) *Store {
	base := []StoreOption{WithClock(NewTestClock()), WithIDGenerator(NewSequentialIDs())}
	return NewStore(append(base, opts...)...)
}

// CreateTestSession creates a named session with a short exchange
func CreateTestSession(id string, userID int) *Session {
	created := TestEpoch.Add(time.Minute)
	return &Session{
		ID:     id,
		Name:   "Hello, how...",
		UserID: userID,
		Messages: []Message{
			{Content: "Hello, how are you?", Sender: SenderUser, Timestamp: created.Add(time.Second)},
			{Content: "I'm doing **well**, thank you!", Sender: SenderAssistant, Timestamp: created.Add(2 * time.Second)},
		},
		CreatedAt: created,
		named:     true,
	}
}

// CreateTestSessionWithMessages creates a session holding the given messages
func CreateTestSessionWithMessages(id string, userID int, messages []Message) *Session {
	session := &Session{
		ID:        id,
		Name:      DefaultSessionName,
		UserID:    userID,
		Messages:  messages,
		CreatedAt: TestEpoch,
	}
	for _, msg := range messages {
		if msg.Sender == SenderUser {
			session.Name = SessionName(msg.Content)
			session.named = true
			break
		}
	}
	return session
}
