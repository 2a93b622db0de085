package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/iksnae/modelchat/internal"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"session_001", "session_001.md"},
		{"../../etc/passwd", ".._.._etc_passwd.md"},
		{"a b/c", "a_b_c.md"},
		{"///", "session.md"},
	}
	for _, tt := range tests {
		got := FileName(&internal.Session{ID: tt.id}, "md")
		if got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestExportAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sessions := []*internal.Session{
		internal.CreateTestSession("s1", 10000),
		internal.CreateTestSession("s2", 10001),
		internal.CreateTestSession("s3", 10002),
		internal.CreateTestSession("s4", 10003),
		internal.CreateTestSession("s5", 10004),
	}

	paths, err := ExportAll(context.Background(), &MarkdownExporter{}, sessions, dir)
	if err != nil {
		t.Fatalf("ExportAll() error = %v", err)
	}
	if len(paths) != len(sessions) {
		t.Fatalf("got %d paths, want %d", len(paths), len(sessions))
	}
	for i, path := range paths {
		if filepath.Base(path) != sessions[i].ID+".md" {
			t.Errorf("paths[%d] = %s, out of order", i, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", path)
		}
	}
}

type failingExporter struct{}

func (failingExporter) Export(*internal.Session, io.Writer) error { return errors.New("boom") }
func (failingExporter) Extension() string                         { return "bin" }

func TestExportAll_ReportsFailure(t *testing.T) {
	sessions := []*internal.Session{internal.CreateTestSession("s1", 10000)}

	_, err := ExportAll(context.Background(), failingExporter{}, sessions, t.TempDir())
	var exportErr *internal.ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("ExportAll() error = %v, want *internal.ExportError", err)
	}
	if exportErr.Format != "bin" {
		t.Errorf("Format = %q, want bin", exportErr.Format)
	}
}

func TestExportAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sessions := []*internal.Session{internal.CreateTestSession("s1", 10000)}
	if _, err := ExportAll(ctx, &JSONExporter{}, sessions, t.TempDir()); !errors.Is(err, context.Canceled) {
		t.Errorf("ExportAll() error = %v, want context.Canceled", err)
	}
}

func TestExportAll_CollidingIDs(t *testing.T) {
	dir := t.TempDir()
	sessions := []*internal.Session{
		internal.CreateTestSession("a/b", 10000),
		internal.CreateTestSession("a:b", 10001),
		internal.CreateTestSession("A_B", 10002),
		internal.CreateTestSession("a_b-2", 10003),
	}

	paths, err := ExportAll(context.Background(), &JSONExporter{}, sessions, dir)
	if err != nil {
		t.Fatalf("ExportAll() error = %v", err)
	}

	want := []string{"a_b.json", "a_b-2.json", "A_B-3.json", "a_b-2-2.json"}
	for i, path := range paths {
		if got := filepath.Base(path); got != want[i] {
			t.Errorf("paths[%d] = %s, want %s", i, got, want[i])
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(sessions) {
		t.Fatalf("wrote %d files, want %d", len(entries), len(sessions))
	}
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		var back internal.Session
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatal(err)
		}
		if back.ID != sessions[i].ID {
			t.Errorf("%s holds %q, want %q", path, back.ID, sessions[i].ID)
		}
	}
}
