package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iksnae/modelchat/internal"
	"github.com/iksnae/modelchat/internal/api"
	"github.com/iksnae/modelchat/internal/config"
	"github.com/spf13/cobra"
)

var (
	verbose        bool
	configPath     string
	serverURL      string
	sessionCookie  string
	requestTimeout time.Duration
	version        string = "dev"
	commit         string = "unknown"
	date           string = "unknown"
)

// cfg holds the settings resolved for the running command
var cfg = config.Default()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "modelchat",
	Short: "Chat with a ModelChat backend from the terminal",
	Long: `A terminal client for the ModelChat web backend.

modelchat keeps several conversation sessions, each with its own user
identity on the backend, and keeps them in sync over the backend's REST API.

Features:
  • Interactive chat with multiple sessions
  • One-shot messages for scripting
  • Session and history management
  • Local SQLite transcript archive
  • Export in multiple formats (JSONL, Markdown, YAML, JSON, HTML)

Quick Start:
  modelchat chat                          # Start an interactive chat
  modelchat sessions                      # List sessions on the backend
  modelchat send --user 10000 "hello"     # Send a single message
  modelchat export --format html --out ./transcripts

Settings are read from ~/.modelchat/config.yaml (or config.toml), then
MODELCHAT_* environment variables, then flags.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		internal.SetVerbose(verbose)
		return loadConfig(cmd)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.modelchat/config.yaml or config.toml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Backend address (default "+config.DefaultServer+")")
	rootCmd.PersistentFlags().StringVar(&sessionCookie, "cookie", "", "Session cookie of a logged-in backend user")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 0, "Per-request timeout (default 2m)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// loadConfig resolves settings: file, then environment, then flags
func loadConfig(cmd *cobra.Command) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		loaded.Server = serverURL
	}
	if flags.Changed("cookie") {
		loaded.SessionCookie = sessionCookie
	}
	if flags.Changed("timeout") {
		loaded.Timeout = config.Duration{Duration: requestTimeout}
	}
	loaded.SetDefaults()
	if err := loaded.Validate(); err != nil {
		return err
	}

	cfg = loaded
	internal.LogDebug("server %s, timeout %v", cfg.Server, cfg.Timeout.Duration)
	return nil
}

func newClient() (*api.Client, error) {
	return api.New(cfg.Server,
		api.WithTimeout(cfg.Timeout.Duration),
		api.WithSessionCookie(cfg.CookieName, cfg.SessionCookie),
	)
}

// archivePath returns the configured archive location
func archivePath() (string, error) {
	if cfg.ArchivePath != "" {
		return cfg.ArchivePath, nil
	}
	return config.DefaultArchivePath()
}

// openArchive opens the configured archive, creating its directory
func openArchive() (*internal.Archive, error) {
	path, err := archivePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return internal.OpenArchive(path)
}

// authError wraps api.ErrAuthRequired with directions to the login page
func authError(loginURL string) error {
	return fmt.Errorf("%w: log in at %s and pass the session cookie with --cookie or %s",
		api.ErrAuthRequired, loginURL, config.EnvCookie)
}

// requestError turns a client failure into a command error. Auth failures
// point the user at the login page.
func requestError(client *api.Client, err error) error {
	switch api.Classify(err) {
	case api.KindAuth:
		return authError(client.LoginURL())
	case api.KindTransport:
		return fmt.Errorf("cannot reach %s: %s", client.BaseURL(), api.Message(err))
	default:
		var status *api.StatusError
		if errors.As(err, &status) && status.Message != "" {
			return errors.New(status.Message)
		}
		return err
	}
}
