package chat

import "fmt"

// Kind is the result of a controller operation
type Kind int

const (
	// Succeeded means the backend accepted the request and local state was updated
	Succeeded Kind = iota
	// Failed means the backend or the network reported an error
	Failed
	// AuthRequired means the backend rejected the session cookie. Nothing
	// was written to the store.
	AuthRequired
	// Discarded means a reply arrived for a session that no longer exists
	Discarded
	// Skipped means there was nothing to do, such as blank input
	Skipped
)

func (k Kind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case AuthRequired:
		return "auth required"
	case Discarded:
		return "discarded"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Target identifies the session a request was issued for. It is captured
// when the request starts and never re-resolved.
type Target struct {
	SessionID string
	UserID    int
}

// Outcome reports what an operation did
type Outcome struct {
	Kind   Kind
	Target Target
	// Message is the reply on success, or the notice shown to the user on failure
	Message string
	Err     error
}

// OK reports whether the operation succeeded
func (o Outcome) OK() bool {
	return o.Kind == Succeeded
}
