package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/modelchat/internal"
	"github.com/iksnae/modelchat/internal/api"
	"github.com/iksnae/modelchat/testutil"
)

func TestSessionsCommand(t *testing.T) {
	isolate(t)
	backend := seedBackend(t)

	out, err := runCommand(t, "", "sessions", "--server", backend.URL())
	if err != nil {
		t.Fatalf("sessions error = %v", err)
	}
	for _, want := range []string{"Found 2 session(s)", "Older chat", "Newer chat", "10000", "10001", "Active", "first answer"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Newer chat") > strings.Index(out, "Older chat") {
		t.Error("newest session should be listed first")
	}
}

func TestSessionsCommand_Cookie(t *testing.T) {
	isolate(t)
	backend := newCookieBackend(t)

	if _, err := runCommand(t, "", "ls", "--server", backend.URL(), "--cookie", "secret"); err != nil {
		t.Fatalf("ls with cookie error = %v", err)
	}

	t.Setenv("MODELCHAT_COOKIE", "secret")
	if _, err := runCommand(t, "", "ls", "--server", backend.URL()); err != nil {
		t.Fatalf("ls with cookie from env error = %v", err)
	}
}

func TestSendCommand(t *testing.T) {
	isolate(t)
	backend := testutil.NewBackend(t)

	out, err := runCommand(t, "", "send", "--server", backend.URL(), "--user", "10001", "hello", "there")
	if err != nil {
		t.Fatalf("send error = %v", err)
	}
	if !strings.Contains(out, "echo: hello there") {
		t.Errorf("output = %q, want the reply", out)
	}
	if got := backend.History(10001); len(got) != 2 {
		t.Errorf("history for 10001 = %v, want 2 entries", got)
	}
}

func TestSendCommand_HTML(t *testing.T) {
	isolate(t)
	backend := testutil.NewBackend(t)

	out, err := runCommand(t, "", "send", "--server", backend.URL(), "--html", "**bold** <b>")
	if err != nil {
		t.Fatalf("send error = %v", err)
	}
	if !strings.Contains(out, "<strong>bold</strong>") || !strings.Contains(out, "&lt;b&gt;") {
		t.Errorf("output = %q, want rendered safe HTML", out)
	}
}

func TestSendCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		fail    bool
		wantErr string
	}{
		{name: "user out of range", args: []string{"--user", "20000", "hi"}, wantErr: "outside the session range"},
		{name: "blank message", args: []string{"   "}, wantErr: "message is empty"},
		{name: "server error", args: []string{"hi"}, fail: true, wantErr: "model overloaded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			backend := testutil.NewBackend(t)
			if tt.fail {
				backend.Fail("POST /api/chat", http.StatusInternalServerError, "model overloaded")
			}

			args := append([]string{"send", "--server", backend.URL()}, tt.args...)
			_, err := runCommand(t, "", args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDeleteCommand(t *testing.T) {
	isolate(t)
	backend := seedBackend(t)

	out, err := runCommand(t, "", "delete", "--server", backend.URL(), "10000")
	if err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if !strings.Contains(out, "Deleted session for user 10000") {
		t.Errorf("output = %q", out)
	}
	if !contains(backend.Requests(), "DELETE /api/session/10000") {
		t.Errorf("requests = %v", backend.Requests())
	}

	backend.Fail("DELETE /api/session/", http.StatusInternalServerError, "")
	_, err = runCommand(t, "", "delete", "--server", backend.URL(), "10001")
	if err == nil {
		t.Fatal("expected error from failing backend")
	}
}

func TestUserIDArguments(t *testing.T) {
	isolate(t)
	backend := testutil.NewBackend(t)

	for _, verb := range []string{"delete", "clear", "history"} {
		t.Run(verb, func(t *testing.T) {
			if _, err := runCommand(t, "", verb, "--server", backend.URL(), "abc"); err == nil || !strings.Contains(err.Error(), "must be a number") {
				t.Errorf("%s abc error = %v", verb, err)
			}
			if _, err := runCommand(t, "", verb, "--server", backend.URL(), "9999"); err == nil {
				t.Errorf("%s 9999 should be rejected", verb)
			}
		})
	}
	if len(backend.Requests()) != 0 {
		t.Errorf("invalid ids reached the backend: %v", backend.Requests())
	}
}

func TestClearAndHistoryCommands(t *testing.T) {
	isolate(t)
	backend := testutil.NewBackend(t)
	if _, err := runCommand(t, "", "send", "--server", backend.URL(), "remember me"); err != nil {
		t.Fatal(err)
	}

	out, err := runCommand(t, "", "history", "--server", backend.URL(), "--json", "10000")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	var entries []api.HistoryEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("history --json output is not JSON: %v\n%s", err, out)
	}
	if len(entries) != 2 || entries[0].Role != "user" || entries[0].Content != "remember me" {
		t.Errorf("entries = %+v", entries)
	}

	if _, err := runCommand(t, "", "clear", "--server", backend.URL(), "10000"); err != nil {
		t.Fatalf("clear error = %v", err)
	}
	out, err = runCommand(t, "", "history", "--server", backend.URL(), "10000")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, "No history") {
		t.Errorf("history after clear = %q", out)
	}
}

func TestPromptCommands(t *testing.T) {
	isolate(t)
	backend := testutil.NewBackend(t)

	out, err := runCommand(t, "", "prompt", "--server", backend.URL())
	if err != nil {
		t.Fatalf("prompt error = %v", err)
	}
	if !strings.Contains(out, backend.Prompt()) {
		t.Errorf("output = %q, want %q", out, backend.Prompt())
	}

	if _, err := runCommand(t, "", "prompt", "set", "--server", backend.URL(), "Be", "brief."); err != nil {
		t.Fatalf("prompt set error = %v", err)
	}
	if got := backend.Prompt(); got != "Be brief." {
		t.Errorf("Prompt() = %q, want %q", got, "Be brief.")
	}
}

func TestRenderCommand(t *testing.T) {
	isolate(t)

	out, err := runCommand(t, "a < b and `x`", "render")
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	if !strings.Contains(out, "a &lt; b and <code>x</code>") {
		t.Errorf("stdin output = %q", out)
	}

	dir := testutil.CreateTempDir(t)
	path := testutil.WriteFile(t, dir, "msg.txt", []byte("# Title"))
	out, err = runCommand(t, "", "render", path)
	if err != nil {
		t.Fatalf("render file error = %v", err)
	}
	if !strings.Contains(out, "<h1>Title</h1>") {
		t.Errorf("file output = %q", out)
	}

	if _, err := runCommand(t, "", "render", dir+"/missing.txt"); err == nil {
		t.Error("expected error for missing file")
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func TestPrintSessionTable_LastActivity(t *testing.T) {
	old := &internal.Session{ID: "a", Name: "old", UserID: 10000, CreatedAt: time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)}
	var buf bytes.Buffer
	printSessionTable(&buf, []*internal.Session{old}, "a")
	if !strings.Contains(buf.String(), "2001-02-03") {
		t.Errorf("table should show the last activity date:\n%s", buf.String())
	}
}
