package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// WireMessage is a message as the backend serialises it
type WireMessage struct {
	Content   string `json:"content"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
}

// WireSession is a session as the backend serialises it
type WireSession struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Messages  []WireMessage `json:"messages"`
	UserID    int           `json:"userId"`
	CreatedAt string        `json:"createdAt"`
}

// HistoryEntry is one turn of the backend's model memory
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type failure struct {
	status  int
	message string
}

// Backend is an in-process fake of the ModelChat REST API
type Backend struct {
	server *httptest.Server

	mu       sync.Mutex
	sessions map[string]WireSession
	history  map[int][]HistoryEntry
	prompt   string
	username string
	cookie   string
	failures map[string]failure
	requests []string
}

// NewBackend starts a fake backend that is shut down when the test ends.
// Chat replies echo the message back as "echo: <message>".
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		sessions: make(map[string]WireSession),
		history:  make(map[int][]HistoryEntry),
		prompt:   "You are a helpful assistant.",
		username: "tester",
		failures: make(map[string]failure),
	}
	b.server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.server.Close)
	return b
}

// URL returns the backend's base address
func (b *Backend) URL() string {
	return b.server.URL
}

// AddSession registers a session returned by /api/sessions
func (b *Backend) AddSession(id, name string, userID int, createdAt time.Time, messages ...WireMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if messages == nil {
		messages = []WireMessage{}
	}
	b.sessions[id] = WireSession{
		ID:        id,
		Name:      name,
		Messages:  messages,
		UserID:    userID,
		CreatedAt: createdAt.UTC().Format(time.RFC3339),
	}
}

// RequireCookie makes every endpoint answer 401 unless the "session"
// cookie carries value
func (b *Backend) RequireCookie(value string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cookie = value
}

// Fail makes requests whose "METHOD /path" starts with prefix answer with
// status and {"error": message}
func (b *Backend) Fail(prefix string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[prefix] = failure{status: status, message: message}
}

// Prompt returns the current system prompt
func (b *Backend) Prompt() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.prompt
}

// History returns the model memory kept for userID
func (b *Backend) History(userID int) []HistoryEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]HistoryEntry(nil), b.history[userID]...)
}

// Requests returns every "METHOD /path" served so far
func (b *Backend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path

	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, key)

	if b.cookie != "" {
		if c, err := r.Cookie("session"); err != nil || c.Value != b.cookie {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
	}
	for prefix, f := range b.failures {
		if strings.HasPrefix(key, prefix) {
			writeJSON(w, f.status, map[string]string{"error": f.message})
			return
		}
	}

	switch {
	case key == "GET /api/sessions":
		writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": b.sessions})
	case key == "POST /api/chat":
		b.chat(w, r)
	case key == "GET /api/current_user":
		writeJSON(w, http.StatusOK, map[string]string{"username": b.username})
	case key == "GET /api/system_prompt":
		writeJSON(w, http.StatusOK, map[string]string{"prompt": b.prompt})
	case key == "POST /api/system_prompt":
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		b.prompt = req.Prompt
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/session/"):
		userID, ok := pathUserID(w, strings.TrimPrefix(r.URL.Path, "/api/session/"))
		if !ok {
			return
		}
		delete(b.history, userID)
		for id, s := range b.sessions {
			if s.UserID == userID {
				delete(b.sessions, id)
			}
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/clear") && strings.HasPrefix(r.URL.Path, "/api/history/"):
		raw := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/history/"), "/clear")
		userID, ok := pathUserID(w, raw)
		if !ok {
			return
		}
		delete(b.history, userID)
		writeJSON(w, http.StatusOK, map[string]bool{"result": true})
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/history/"):
		userID, ok := pathUserID(w, strings.TrimPrefix(r.URL.Path, "/api/history/"))
		if !ok {
			return
		}
		history := b.history[userID]
		if history == nil {
			history = []HistoryEntry{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"history": history})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (b *Backend) chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  int    `json:"user_id"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	reply := "echo: " + req.Message
	b.history[req.UserID] = append(b.history[req.UserID],
		HistoryEntry{Role: "user", Content: req.Message},
		HistoryEntry{Role: "assistant", Content: reply},
	)
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func pathUserID(w http.ResponseWriter, raw string) (int, bool) {
	userID, err := strconv.Atoi(raw)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("bad user id %q", raw)})
		return 0, false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
