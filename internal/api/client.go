// Package api is the REST client for the ModelChat backend. It is the only
// package that performs network I/O.
//
// Every operation is a single request with no automatic retry. Failures are
// returned as *TransportError, *StatusError (wrapping ErrAuthRequired on
// 401) or *DecodeError; use Classify to tell them apart.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/iksnae/modelchat/internal"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultTimeout bounds a whole request, including the model's reply
	DefaultTimeout = 120 * time.Second

	// DefaultCookieName is the session cookie set by the backend on login
	DefaultCookieName = "session"

	// maxResponseSize caps how much of a response body is read
	maxResponseSize = 10 * 1024 * 1024
)

// Client talks to a ModelChat backend
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	cookie     *http.Cookie
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its cookie jar is
// used as-is when set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithSessionCookie seeds the cookie jar with an authenticated session cookie
func WithSessionCookie(name, value string) Option {
	return func(c *Client) {
		if value == "" {
			return
		}
		if name == "" {
			name = DefaultCookieName
		}
		c.cookie = &http.Cookie{Name: name, Value: value, Path: "/"}
	}
}

// New creates a client for the backend at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: missing host", baseURL)
	}

	c := &Client{baseURL: u, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	if c.cookie != nil {
		c.httpClient.Jar.SetCookies(u, []*http.Cookie{c.cookie})
	}
	return c, nil
}

// BaseURL returns the backend address
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// LoginURL returns the page an unauthenticated user is sent to
func (c *Client) LoginURL() string {
	return c.baseURL.JoinPath("login").String()
}

// HistoryEntry is one turn of the backend's model memory for a user
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type errorBody struct {
	Error string `json:"error"`
}

// ListSessions returns the sessions the backend knows about, most recent first
func (c *Client) ListSessions(ctx context.Context) ([]*internal.Session, error) {
	var body struct {
		Sessions map[string]*internal.Session `json:"sessions"`
	}
	if err := c.do(ctx, "list sessions", http.MethodGet, "/api/sessions", nil, &body); err != nil {
		return nil, err
	}

	sessions := make([]*internal.Session, 0, len(body.Sessions))
	for id, session := range body.Sessions {
		if session == nil {
			continue
		}
		if session.ID == "" {
			session.ID = id
		}
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	internal.LogDebug("backend listed %d session(s)", len(sessions))
	return sessions, nil
}

// SendMessage sends a chat message on behalf of userID and returns the reply
func (c *Client) SendMessage(ctx context.Context, userID int, message string) (string, error) {
	req := struct {
		UserID  int    `json:"user_id"`
		Message string `json:"message"`
	}{UserID: userID, Message: message}

	var resp struct {
		Response string `json:"response"`
	}
	if err := c.do(ctx, "send message", http.MethodPost, "/api/chat", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// DeleteSession deletes the backend history for userID
func (c *Client) DeleteSession(ctx context.Context, userID int) error {
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	const op = "delete session"
	if err := c.do(ctx, op, http.MethodDelete, "/api/session/"+strconv.Itoa(userID), nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "unknown error"
		}
		return &StatusError{Op: op, StatusCode: http.StatusOK, Message: msg}
	}
	return nil
}

// ClearHistory clears the backend history for userID
func (c *Client) ClearHistory(ctx context.Context, userID int) error {
	return c.do(ctx, "clear history", http.MethodPost, "/api/history/"+strconv.Itoa(userID)+"/clear", nil, nil)
}

// History returns the model memory the backend keeps for userID
func (c *Client) History(ctx context.Context, userID int) ([]HistoryEntry, error) {
	var resp struct {
		History []HistoryEntry `json:"history"`
	}
	if err := c.do(ctx, "get history", http.MethodGet, "/api/history/"+strconv.Itoa(userID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.History, nil
}

// SystemPrompt returns the backend's current system prompt
func (c *Client) SystemPrompt(ctx context.Context) (string, error) {
	var resp struct {
		Prompt string `json:"prompt"`
	}
	if err := c.do(ctx, "get system prompt", http.MethodGet, "/api/system_prompt", nil, &resp); err != nil {
		return "", err
	}
	return resp.Prompt, nil
}

// SetSystemPrompt replaces the backend's system prompt
func (c *Client) SetSystemPrompt(ctx context.Context, prompt string) error {
	req := struct {
		Prompt string `json:"prompt"`
	}{Prompt: prompt}
	return c.do(ctx, "set system prompt", http.MethodPost, "/api/system_prompt", req, nil)
}

// CurrentUser returns the name of the authenticated user
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	var resp struct {
		Username string `json:"username"`
	}
	if err := c.do(ctx, "current user", http.MethodGet, "/api/current_user", nil, &resp); err != nil {
		return "", err
	}
	return resp.Username, nil
}

// do performs one request. A nil out discards the success body.
func (c *Client) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		internal.LogDebug("%s %s failed after %v: %v", method, path, time.Since(start), err)
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	internal.LogDebug("%s %s -> %d in %v", method, path, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Message: eb.Error}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}
