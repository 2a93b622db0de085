// Package chat turns user intents into store mutations and backend calls.
//
// A request's target session is captured when it starts. Whatever the
// active session is by the time the backend answers, the reply is written
// to the captured one, and dropped if that session was deleted meanwhile.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/iksnae/modelchat/internal"
	"github.com/iksnae/modelchat/internal/api"
)

// Notices appended to a session as assistant messages
const (
	networkErrorPrefix = "Network error: "
	errorPrefix        = "Error: "
	historyCleared     = "Session history cleared"
	unknownError       = "unknown error"
)

// ErrDeleteInFlight is returned when a session is deleted twice concurrently
var ErrDeleteInFlight = errors.New("delete already in progress")

// Backend is the subset of the ModelChat API the controller needs
type Backend interface {
	ListSessions(ctx context.Context) ([]*internal.Session, error)
	SendMessage(ctx context.Context, userID int, message string) (string, error)
	DeleteSession(ctx context.Context, userID int) error
	ClearHistory(ctx context.Context, userID int) error
	LoginURL() string
}

// Notifier receives UI signals. Pending(t, true) is always followed by
// Pending(t, false), whatever the request's fate.
type Notifier interface {
	Pending(target Target, on bool)
	AuthRequired(loginURL string)
}

// Archiver mirrors sessions to durable storage. *internal.Archive satisfies it.
type Archiver interface {
	SaveSession(session *internal.Session) error
	DeleteSession(id string) error
}

type nopNotifier struct{}

func (nopNotifier) Pending(Target, bool) {}
func (nopNotifier) AuthRequired(string)  {}

// Controller coordinates a Store with a Backend
type Controller struct {
	store    *internal.Store
	backend  Backend
	notifier Notifier
	archive  Archiver

	mu       sync.Mutex
	deleting map[string]bool
}

// Option configures a Controller
type Option func(*Controller)

// WithNotifier sets the receiver of pending and auth signals
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithArchive mirrors every completed mutation to a
func WithArchive(a Archiver) Option {
	return func(c *Controller) { c.archive = a }
}

// New creates a controller. The store is owned by the caller and may be
// inspected directly.
func New(store *internal.Store, backend Backend, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		backend:  backend,
		notifier: nopNotifier{},
		deleting: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the underlying session store
func (c *Controller) Store() *internal.Store {
	return c.store
}

// Bootstrap replaces the store contents with the backend's sessions. When
// the backend has none, or cannot be reached, a default session is
// created locally so there is always an active one.
func (c *Controller) Bootstrap(ctx context.Context) Outcome {
	sessions, err := c.backend.ListSessions(ctx)
	if err == nil {
		c.store.Load(sessions)
		for _, session := range c.store.ListSessions() {
			c.save(session.ID)
		}
		return Outcome{Kind: Succeeded, Target: c.activeTarget()}
	}

	if api.Classify(err) == api.KindAuth {
		c.notifier.AuthRequired(c.backend.LoginURL())
		return Outcome{Kind: AuthRequired, Err: err}
	}

	internal.LogWarn("failed to load sessions: %v", err)
	if c.store.Len() == 0 {
		c.NewSession()
	}
	return Outcome{Kind: Failed, Target: c.activeTarget(), Message: notice(err), Err: err}
}

// NewSession creates a session and makes it active
func (c *Controller) NewSession() *internal.Session {
	session := c.store.CreateSession()
	c.save(session.ID)
	return session
}

// Switch makes id the active session. Unknown IDs are ignored.
func (c *Controller) Switch(id string) {
	c.store.SwitchActive(id)
}

// Send posts text on behalf of the active session and waits for the reply
func (c *Controller) Send(ctx context.Context, text string) Outcome {
	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{Kind: Skipped}
	}
	target, err := c.begin(text)
	if err != nil {
		return Outcome{Kind: Failed, Target: target, Err: err}
	}
	return c.deliver(ctx, target, text)
}

// SendAsync is Send in a goroutine. The target is captured before
// SendAsync returns, so switching sessions afterwards does not affect
// where the reply lands. The channel receives exactly one Outcome.
func (c *Controller) SendAsync(ctx context.Context, text string) <-chan Outcome {
	out := make(chan Outcome, 1)

	text = strings.TrimSpace(text)
	if text == "" {
		out <- Outcome{Kind: Skipped}
		close(out)
		return out
	}
	target, err := c.begin(text)
	if err != nil {
		out <- Outcome{Kind: Failed, Target: target, Err: err}
		close(out)
		return out
	}

	go func() {
		defer close(out)
		out <- c.deliver(ctx, target, text)
	}()
	return out
}

// begin captures the active session and records the user's message in it
func (c *Controller) begin(text string) (Target, error) {
	session, ok := c.store.Active()
	if !ok {
		session = c.store.CreateSession()
	}
	target := Target{SessionID: session.ID, UserID: session.UserID}

	if _, err := c.store.AppendMessage(target.SessionID, text, internal.SenderUser); err != nil {
		return target, err
	}
	c.save(target.SessionID)
	return target, nil
}

func (c *Controller) deliver(ctx context.Context, target Target, text string) Outcome {
	c.notifier.Pending(target, true)
	defer c.notifier.Pending(target, false)

	reply, err := c.backend.SendMessage(ctx, target.UserID, text)
	if err == nil {
		return c.write(target, reply, Succeeded, nil)
	}
	if api.Classify(err) == api.KindAuth {
		c.notifier.AuthRequired(c.backend.LoginURL())
		return Outcome{Kind: AuthRequired, Target: target, Err: err}
	}
	internal.LogDebug("send for %s failed: %v", target.SessionID, err)
	return c.write(target, notice(err), Failed, err)
}

// write appends an assistant message to the captured session
func (c *Controller) write(target Target, content string, kind Kind, cause error) Outcome {
	if _, err := c.store.AppendMessage(target.SessionID, content, internal.SenderAssistant); err != nil {
		var notFound *internal.SessionNotFoundError
		if errors.As(err, &notFound) {
			internal.LogDebug("discarding reply for deleted session %s", target.SessionID)
			return Outcome{Kind: Discarded, Target: target, Message: content, Err: cause}
		}
		return Outcome{Kind: Failed, Target: target, Err: err}
	}
	c.save(target.SessionID)
	return Outcome{Kind: kind, Target: target, Message: content, Err: cause}
}

// Delete removes a session on the backend and then locally. On failure the
// session is left untouched.
func (c *Controller) Delete(ctx context.Context, id string) Outcome {
	session, ok := c.store.Get(id)
	if !ok {
		return Outcome{Kind: Failed, Target: Target{SessionID: id}, Err: &internal.SessionNotFoundError{ID: id}}
	}
	target := Target{SessionID: session.ID, UserID: session.UserID}

	c.mu.Lock()
	if c.deleting[id] {
		c.mu.Unlock()
		return Outcome{Kind: Failed, Target: target, Err: ErrDeleteInFlight}
	}
	c.deleting[id] = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.deleting, id)
		c.mu.Unlock()
	}()

	c.notifier.Pending(target, true)
	defer c.notifier.Pending(target, false)

	if err := c.backend.DeleteSession(ctx, target.UserID); err != nil {
		if api.Classify(err) == api.KindAuth {
			c.notifier.AuthRequired(c.backend.LoginURL())
			return Outcome{Kind: AuthRequired, Target: target, Err: err}
		}
		return Outcome{Kind: Failed, Target: target, Message: notice(err), Err: err}
	}

	if !c.store.DeleteSession(id) {
		return Outcome{Kind: Discarded, Target: target}
	}
	if c.archive != nil {
		if err := c.archive.DeleteSession(id); err != nil {
			internal.LogWarn("failed to remove %s from archive: %v", id, err)
		}
	}
	// deleting the last session creates a replacement
	c.save(c.store.ActiveID())
	return Outcome{Kind: Succeeded, Target: target}
}

// ClearHistory clears a session's history on the backend, then empties
// it locally and leaves a notice
func (c *Controller) ClearHistory(ctx context.Context, id string) Outcome {
	session, ok := c.store.Get(id)
	if !ok {
		return Outcome{Kind: Failed, Target: Target{SessionID: id}, Err: &internal.SessionNotFoundError{ID: id}}
	}
	target := Target{SessionID: session.ID, UserID: session.UserID}

	c.notifier.Pending(target, true)
	defer c.notifier.Pending(target, false)

	if err := c.backend.ClearHistory(ctx, target.UserID); err != nil {
		if api.Classify(err) == api.KindAuth {
			c.notifier.AuthRequired(c.backend.LoginURL())
			return Outcome{Kind: AuthRequired, Target: target, Err: err}
		}
		return c.write(target, notice(err), Failed, err)
	}

	if err := c.store.ResetMessages(id); err != nil {
		return Outcome{Kind: Discarded, Target: target}
	}
	return c.write(target, historyCleared, Succeeded, nil)
}

func (c *Controller) activeTarget() Target {
	session, ok := c.store.Active()
	if !ok {
		return Target{}
	}
	return Target{SessionID: session.ID, UserID: session.UserID}
}

func (c *Controller) save(id string) {
	if c.archive == nil {
		return
	}
	session, ok := c.store.Get(id)
	if !ok {
		return
	}
	if err := c.archive.SaveSession(session); err != nil {
		internal.LogWarn("failed to archive session %s: %v", id, err)
	}
}

// notice is the text shown for a failed request
func notice(err error) string {
	if api.Classify(err) == api.KindTransport {
		return networkErrorPrefix + api.Message(err)
	}
	msg := api.Message(err)
	var status *api.StatusError
	if errors.As(err, &status) && status.Message == "" {
		msg = unknownError
	}
	return errorPrefix + msg
}
