package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/iksnae/modelchat/internal"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentWrites bounds the number of files written at once
const maxConcurrentWrites = 4

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName returns the file name used for a session in directory exports
func FileName(session *internal.Session, ext string) string {
	return baseName(session) + "." + ext
}

func baseName(session *internal.Session) string {
	name := unsafeFileChars.ReplaceAllString(session.ID, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "session"
	}
	return name
}

// fileNames assigns each session a distinct file name. IDs that sanitize
// to the same name get "-2", "-3", ... suffixes in order. Names are
// compared case-insensitively.
func fileNames(sessions []*internal.Session, ext string) []string {
	names := make([]string, len(sessions))
	used := make(map[string]bool, len(sessions))
	for i, session := range sessions {
		base := baseName(session)
		name := base + "." + ext
		for n := 2; used[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s-%d.%s", base, n, ext)
		}
		used[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

// ExportAll writes each session to its own file under dir and returns the
// paths written, in the order of sessions. It stops at the first failure.
func ExportAll(ctx context.Context, exporter Exporter, sessions []*internal.Session, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &internal.ExportError{Format: exporter.Extension(), Path: dir, Err: err}
	}

	paths := make([]string, len(sessions))
	names := fileNames(sessions, exporter.Extension())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentWrites)

	for i, session := range sessions {
		i, session := i, session
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, names[i])
			if err := writeFile(exporter, session, path); err != nil {
				return err
			}
			paths[i] = path
			internal.LogDebug("exported %s to %s", session.ID, path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func writeFile(exporter Exporter, session *internal.Session, path string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = &internal.ExportError{Format: exporter.Extension(), Path: path, Err: cerr}
		}
	}()

	if err := exporter.Export(session, file); err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: fmt.Errorf("failed to export session %s: %w", session.ID, err)}
	}
	return nil
}
