package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/modelchat/internal"
	"github.com/iksnae/modelchat/internal/api"
	"github.com/iksnae/modelchat/internal/chat"
	"github.com/iksnae/modelchat/internal/config"
	"github.com/iksnae/modelchat/testutil"
)

// newTestRepl bootstraps a repl against backend and returns its output buffer
func newTestRepl(t *testing.T, backend *testutil.Backend) (*repl, *bytes.Buffer) {
	t.Helper()
	client, err := api.New(backend.URL())
	if err != nil {
		t.Fatal(err)
	}
	ctrl := chat.New(internal.NewTestStore(), client)
	if outcome := ctrl.Bootstrap(context.Background()); !outcome.OK() {
		t.Fatalf("Bootstrap() = %v", outcome.Kind)
	}
	var out bytes.Buffer
	return &repl{ctrl: ctrl, prompts: client, out: &out, loginURL: client.LoginURL()}, &out
}

func TestChatCommand(t *testing.T) {
	isolate(t)
	backend := testutil.NewBackend(t)

	out, err := runCommand(t, "hello\n\n/history\n/quit\nnever sent\n", "chat", "--server", backend.URL())
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if !strings.Contains(out, "echo: hello") {
		t.Errorf("output missing the reply:\n%s", out)
	}
	if got := backend.History(internal.DefaultIdentityLow); len(got) != 2 {
		t.Errorf("backend history = %v, want one exchange", got)
	}
}

func TestChatCommand_EndOfInput(t *testing.T) {
	isolate(t)
	backend := testutil.NewBackend(t)

	if _, err := runCommand(t, "hi", "chat", "--server", backend.URL()); err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if got := backend.History(internal.DefaultIdentityLow); len(got) != 2 {
		t.Errorf("backend history = %v", got)
	}
}

func TestChatCommand_AuthRequired(t *testing.T) {
	isolate(t)
	backend := newCookieBackend(t)

	out, err := runCommand(t, "hello\n", "chat", "--server", backend.URL())
	if err == nil {
		t.Fatal("expected authentication error")
	}
	if !strings.Contains(out, backend.URL()+"/login") {
		t.Errorf("output should point at the login page:\n%s", out)
	}
}

func TestChatCommand_BackendDown(t *testing.T) {
	isolate(t)
	backend := testutil.NewBackend(t)
	backend.Fail("GET /api/sessions", http.StatusInternalServerError, "db locked")

	out, err := runCommand(t, "/quit\n", "chat", "--server", backend.URL())
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if !strings.Contains(out, "Could not load sessions: Error: db locked") {
		t.Errorf("output = %s", out)
	}
}

func TestChatCommand_Archive(t *testing.T) {
	isolate(t)
	backend := testutil.NewBackend(t)
	path := filepath.Join(t.TempDir(), "nested", "archive.db")
	t.Setenv(config.EnvArchive, path)

	if _, err := runCommand(t, "archive me\n/quit\n", "chat", "--server", backend.URL(), "--archive"); err != nil {
		t.Fatalf("chat error = %v", err)
	}

	archive, err := internal.OpenArchive(path)
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()
	sessions, err := archive.LoadSessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || len(sessions[0].Messages) != 2 {
		t.Fatalf("archived = %+v, want one session with an exchange", sessions)
	}
	if sessions[0].Name != "archive me" {
		t.Errorf("archived name = %q", sessions[0].Name)
	}
}

func TestHandleCommand(t *testing.T) {
	backend := seedBackend(t)
	ctx := context.Background()

	t.Run("quit and exit", func(t *testing.T) {
		r, _ := newTestRepl(t, backend)
		for _, line := range []string{"/quit", "/exit"} {
			quit, err := r.handleCommand(ctx, line)
			if !quit || err != nil {
				t.Errorf("%s = (%v, %v), want quit", line, quit, err)
			}
		}
	})

	t.Run("list marks active", func(t *testing.T) {
		r, out := newTestRepl(t, backend)
		if _, err := r.handleCommand(ctx, "/list"); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out.String(), "* 1") {
			t.Errorf("newest session should be active:\n%s", out)
		}
	})

	t.Run("switch by position and user id", func(t *testing.T) {
		r, out := newTestRepl(t, backend)
		if _, err := r.handleCommand(ctx, "/switch 2"); err != nil {
			t.Fatal(err)
		}
		if got := r.ctrl.Store().ActiveID(); got != "s-old" {
			t.Errorf("ActiveID() = %q, want s-old", got)
		}
		if !strings.Contains(out.String(), "first answer") {
			t.Errorf("switch should print the transcript:\n%s", out)
		}
		if _, err := r.handleCommand(ctx, "/switch 10001"); err != nil {
			t.Fatal(err)
		}
		if got := r.ctrl.Store().ActiveID(); got != "s-new" {
			t.Errorf("ActiveID() = %q, want s-new", got)
		}
		if _, err := r.handleCommand(ctx, "/switch s-old"); err != nil {
			t.Fatal(err)
		}
		if got := r.ctrl.Store().ActiveID(); got != "s-old" {
			t.Errorf("ActiveID() = %q, want s-old", got)
		}
	})

	t.Run("new session", func(t *testing.T) {
		r, out := newTestRepl(t, backend)
		if _, err := r.handleCommand(ctx, "/new"); err != nil {
			t.Fatal(err)
		}
		if r.ctrl.Store().Len() != 3 {
			t.Errorf("Len() = %d, want 3", r.ctrl.Store().Len())
		}
		if !strings.Contains(out.String(), "Started "+internal.DefaultSessionName) {
			t.Errorf("output = %s", out)
		}
	})

	t.Run("prompt", func(t *testing.T) {
		r, out := newTestRepl(t, backend)
		if _, err := r.handleCommand(ctx, "/prompt Answer in French."); err != nil {
			t.Fatal(err)
		}
		if backend.Prompt() != "Answer in French." {
			t.Errorf("Prompt() = %q", backend.Prompt())
		}
		out.Reset()
		if _, err := r.handleCommand(ctx, "/prompt"); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out.String(), "Answer in French.") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("errors", func(t *testing.T) {
		r, _ := newTestRepl(t, backend)
		for _, line := range []string{"/bogus", "/switch", "/switch 99", "/delete nope"} {
			quit, err := r.handleCommand(ctx, line)
			if quit || err == nil {
				t.Errorf("%s = (%v, %v), want an error", line, quit, err)
			}
		}
	})
}

func TestHandleCommand_Delete(t *testing.T) {
	backend := seedBackend(t)
	r, out := newTestRepl(t, backend)
	ctx := context.Background()

	if _, err := r.handleCommand(ctx, "/delete"); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.ctrl.Store().Get("s-new"); ok {
		t.Error("active session should be deleted")
	}
	if got := r.ctrl.Store().ActiveID(); got != "s-old" {
		t.Errorf("ActiveID() = %q, want s-old", got)
	}
	if !strings.Contains(out.String(), "Deleted session for user 10001") {
		t.Errorf("output = %s", out)
	}

	backend.Fail("DELETE /api/session/", http.StatusInternalServerError, "locked")
	_, err := r.handleCommand(ctx, "/delete 10000")
	if err == nil || err.Error() != "Error: locked" {
		t.Errorf("error = %v, want the backend notice", err)
	}
	if _, ok := r.ctrl.Store().Get("s-old"); !ok {
		t.Error("failed delete should keep the session")
	}
}

func TestHandleCommand_Clear(t *testing.T) {
	backend := seedBackend(t)
	r, out := newTestRepl(t, backend)
	ctx := context.Background()

	if _, err := r.handleCommand(ctx, "/switch s-old"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.handleCommand(ctx, "/clear"); err != nil {
		t.Fatal(err)
	}
	session, _ := r.ctrl.Store().Get("s-old")
	if len(session.Messages) != 1 || session.Messages[0].Content != "Session history cleared" {
		t.Errorf("messages after clear = %+v", session.Messages)
	}
	if session.Name != "Older chat" {
		t.Errorf("Name = %q, clearing should keep it", session.Name)
	}
	if !strings.Contains(out.String(), "Session history cleared") {
		t.Errorf("output = %s", out)
	}
}

func TestReplSend_FailureNotice(t *testing.T) {
	backend := testutil.NewBackend(t)
	r, out := newTestRepl(t, backend)
	backend.Fail("POST /api/chat", http.StatusBadGateway, "")

	if err := r.send(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Error: unknown error") {
		t.Errorf("output = %s", out)
	}
	session, _ := r.ctrl.Store().Active()
	if len(session.Messages) != 2 || session.Messages[1].Content != "Error: unknown error" {
		t.Errorf("messages = %+v", session.Messages)
	}
}

func TestChatCommand_AuthLostMidSession(t *testing.T) {
	isolate(t)
	backend := testutil.NewBackend(t)
	backend.Fail("POST /api/chat", http.StatusUnauthorized, "login required")

	out, err := runCommand(t, "hello\nsecond\n/quit\n", "chat", "--server", backend.URL())
	if !errors.Is(err, api.ErrAuthRequired) {
		t.Fatalf("chat error = %v, want ErrAuthRequired", err)
	}
	if !strings.Contains(err.Error(), backend.URL()+"/login") {
		t.Errorf("error %q should point at the login page", err)
	}
	if strings.Contains(out, "echo:") {
		t.Errorf("no reply expected:\n%s", out)
	}

	posts := 0
	for _, req := range backend.Requests() {
		if req == "POST /api/chat" {
			posts++
		}
	}
	if posts != 1 {
		t.Errorf("POST /api/chat sent %d times, want 1: %v", posts, backend.Requests())
	}
}

func TestHandleCommand_AuthRequired(t *testing.T) {
	for _, line := range []string{"/clear", "/delete", "/prompt", "/prompt Be brief."} {
		t.Run(line, func(t *testing.T) {
			backend := seedBackend(t)
			r, _ := newTestRepl(t, backend)
			backend.RequireCookie("secret")

			quit, err := r.handleCommand(context.Background(), line)
			if quit {
				t.Error("auth failure should not be reported as quit")
			}
			if !errors.Is(err, api.ErrAuthRequired) {
				t.Errorf("%s error = %v, want ErrAuthRequired", line, err)
			}
			if r.ctrl.Store().Len() != 2 {
				t.Errorf("Len() = %d, auth failure should leave sessions alone", r.ctrl.Store().Len())
			}
		})
	}
}
