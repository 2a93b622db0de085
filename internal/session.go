package internal

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sender identifies who produced a message
type Sender int

const (
	SenderUser Sender = iota
	SenderAssistant
)

// DefaultSessionName is shown until the first user message names a session
const DefaultSessionName = "New session"

const (
	nameLength    = 10
	previewLength = 20
	ellipsis      = "..."
)

// String returns the wire form of the sender ("user" or "bot")
func (s Sender) String() string {
	switch s {
	case SenderUser:
		return "user"
	case SenderAssistant:
		return "bot"
	default:
		return fmt.Sprintf("Sender(%d)", int(s))
	}
}

// Label returns a human readable name for the sender
func (s Sender) Label() string {
	if s == SenderUser {
		return "user"
	}
	return "assistant"
}

// ParseSender parses the wire form of a sender. "assistant" is accepted as
// an alias of "bot".
func ParseSender(v string) (Sender, error) {
	switch v {
	case "user":
		return SenderUser, nil
	case "bot", "assistant":
		return SenderAssistant, nil
	default:
		return 0, fmt.Errorf("unknown sender %q", v)
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Sender) MarshalText() ([]byte, error) {
	if s != SenderUser && s != SenderAssistant {
		return nil, fmt.Errorf("invalid sender %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Sender) UnmarshalText(text []byte) error {
	parsed, err := ParseSender(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Message is a single entry in a session's history
type Message struct {
	Content   string    `json:"content" yaml:"content"`
	Sender    Sender    `json:"sender" yaml:"sender"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Session is one conversation thread with its own backend identity
type Session struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	UserID    int       `json:"userId" yaml:"user_id"`
	Messages  []Message `json:"messages" yaml:"messages"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`

	// named is set once the first user message has produced Name
	named bool
}

// Named reports whether the session name has been derived from a user message
func (s *Session) Named() bool {
	return s.named
}

// Preview returns the last message truncated for list display
func (s *Session) Preview() string {
	if len(s.Messages) == 0 {
		return DefaultSessionName
	}
	return truncate(s.Messages[len(s.Messages)-1].Content, previewLength)
}

// LastActivity returns the time of the newest timestamped message, or
// CreatedAt when no message carries a time
func (s *Session) LastActivity() time.Time {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if !s.Messages[i].Timestamp.IsZero() {
			return s.Messages[i].Timestamp
		}
	}
	return s.CreatedAt
}

// clone returns a deep copy so callers never alias store state
func (s *Session) clone() *Session {
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	return &c
}

// UnmarshalJSON decodes the backend message shape. A missing or empty
// timestamp decodes to the zero time.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w struct {
		Content   string `json:"content"`
		Sender    Sender `json:"sender"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	ts, err := parseWireTime(w.Timestamp)
	if err != nil {
		return fmt.Errorf("message timestamp: %w", err)
	}
	*m = Message{Content: w.Content, Sender: w.Sender, Timestamp: ts}
	return nil
}

// UnmarshalJSON decodes the backend session shape. Sessions that already
// carry user messages are treated as named.
func (s *Session) UnmarshalJSON(data []byte) error {
	var w struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		UserID    int       `json:"userId"`
		Messages  []Message `json:"messages"`
		CreatedAt string    `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	created, err := parseWireTime(w.CreatedAt)
	if err != nil {
		return fmt.Errorf("session createdAt: %w", err)
	}

	*s = Session{ID: w.ID, Name: w.Name, UserID: w.UserID, Messages: w.Messages, CreatedAt: created}
	if s.Messages == nil {
		s.Messages = []Message{}
	}
	if s.Name == "" {
		s.Name = DefaultSessionName
	}
	for _, msg := range s.Messages {
		if msg.Sender == SenderUser {
			s.named = true
			break
		}
	}
	return nil
}

func parseWireTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, v)
}

// SessionName derives a display name from the first user message
func SessionName(firstMessage string) string {
	if firstMessage == "" {
		return DefaultSessionName
	}
	return truncate(firstMessage, nameLength)
}

// truncate keeps the first n runes and marks the cut
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + ellipsis
}
