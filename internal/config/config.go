// Package config loads modelchat settings from a YAML or TOML file and the
// environment. Command-line flags are applied on top by the caller.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultServer is the address of a locally running backend
	DefaultServer = "http://localhost:5000"
	// DefaultTimeout bounds each backend request
	DefaultTimeout = 120 * time.Second
	// DefaultCookieName is the backend's session cookie
	DefaultCookieName = "session"

	dirName = ".modelchat"
)

// Environment variables read by ApplyEnvOverrides
const (
	EnvServer  = "MODELCHAT_SERVER"
	EnvCookie  = "MODELCHAT_COOKIE"
	EnvTimeout = "MODELCHAT_TIMEOUT"
	EnvArchive = "MODELCHAT_ARCHIVE"
)

// Duration is a time.Duration written as "90s" or "2m" in config files
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config holds client settings
type Config struct {
	Server        string   `yaml:"server" toml:"server"`
	SessionCookie string   `yaml:"session_cookie" toml:"session_cookie"`
	CookieName    string   `yaml:"cookie_name" toml:"cookie_name"`
	Timeout       Duration `yaml:"timeout" toml:"timeout"`
	ArchivePath   string   `yaml:"archive" toml:"archive"`
	ExportDir     string   `yaml:"export_dir" toml:"export_dir"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Server:     DefaultServer,
		CookieName: DefaultCookieName,
		Timeout:    Duration{DefaultTimeout},
	}
}

// Dir returns ~/.modelchat
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// DefaultArchivePath returns ~/.modelchat/archive.db
func DefaultArchivePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "archive.db"), nil
}

// Load reads settings from path, or from ~/.modelchat/config.yaml or
// config.toml when path is empty, then applies environment overrides.
// A missing default file is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		found, err := findDefault()
		if err != nil {
			return nil, err
		}
		path = found
	}

	if path != "" {
		if err := LoadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func findDefault() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

// LoadFile decodes path into cfg. The format follows the file extension.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to decode TOML file %s: %w", path, err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode YAML file %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (use .yaml or .toml)", filepath.Ext(path))
	}
	return nil
}

// ApplyEnvOverrides applies MODELCHAT_* variables
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv(EnvServer); v != "" {
		c.Server = v
	}
	if v := os.Getenv(EnvCookie); v != "" {
		c.SessionCookie = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvTimeout, v, err)
		}
		c.Timeout = Duration{d}
	}
	if v := os.Getenv(EnvArchive); v != "" {
		c.ArchivePath = v
	}
	return nil
}

// SetDefaults fills unset fields
func (c *Config) SetDefaults() {
	if c.Server == "" {
		c.Server = DefaultServer
	}
	if c.CookieName == "" {
		c.CookieName = DefaultCookieName
	}
	c.Server = strings.TrimRight(c.Server, "/")
}

// Validate checks that the settings are usable
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server must be an http(s) URL, got %q", c.Server)
	}
	if c.Timeout.Duration < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", c.Timeout.Duration)
	}
	return nil
}

// Save writes cfg as YAML, or TOML when path ends in .toml. The file is
// created owner-only since it may hold a session cookie.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.NewEncoder(file).Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return nil
	}

	enc := yaml.NewEncoder(file)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
