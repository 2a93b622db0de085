package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/modelchat/internal"
	"github.com/iksnae/modelchat/internal/config"
	"github.com/iksnae/modelchat/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// isolate points HOME at a temp dir and clears MODELCHAT_* variables so a
// developer's own config never leaks into a test
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, env := range []string{config.EnvServer, config.EnvCookie, config.EnvTimeout, config.EnvArchive} {
		t.Setenv(env, "")
	}
	return home
}

// resetFlags restores every flag of c and its children to its default.
// Cobra keeps parsed values between Execute calls on the same tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, child := range c.Commands() {
		resetFlags(child)
	}
}

// runCommand executes the root command with args and returns everything
// written to stdout and stderr
func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))

	err := rootCmd.Execute()
	return out.String(), err
}

// newCookieBackend starts a backend that rejects requests without the
// session cookie "secret"
func newCookieBackend(t *testing.T) *testutil.Backend {
	t.Helper()
	backend := testutil.NewBackend(t)
	backend.RequireCookie("secret")
	return backend
}

// seedBackend starts a backend holding two sessions: user 10000 (older)
// and user 10001 (newer)
func seedBackend(t *testing.T) *testutil.Backend {
	t.Helper()
	backend := testutil.NewBackend(t)
	backend.AddSession("s-old", "Older chat", 10000, internal.TestEpoch,
		testutil.WireMessage{Content: "first question", Sender: "user", Timestamp: internal.TestEpoch.Format(time.RFC3339)},
		testutil.WireMessage{Content: "first answer", Sender: "bot", Timestamp: internal.TestEpoch.Format(time.RFC3339)},
	)
	backend.AddSession("s-new", "Newer chat", 10001, internal.TestEpoch.Add(time.Hour))
	return backend
}
