// Package config loads the triplegate configuration file.
//
// Config file locations (priority order):
//  1. $TRIPLEGATE_CONFIG
//  2. ./triplegate.yaml
//  3. $XDG_CONFIG_HOME/triplegate/config.yaml
//  4. ~/.config/triplegate/config.yaml
//  5. /etc/triplegate/config.yaml
//
// Missing files are not an error: Load returns DefaultConfig.
// $TRIPLEGATE_REMOTE_PASSWORD overrides remote.password so the secret can
// stay out of the file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvRemotePassword overrides Remote.Password when set.
const EnvRemotePassword = "TRIPLEGATE_REMOTE_PASSWORD"

// Backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRemote = "remote"
)

// Defaults.
const (
	DefaultGraph       = "http://example.com/"
	DefaultSQLitePath  = "./triplegate.db"
	DefaultTimeout     = 30 * time.Second
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	currentFileVersion = 1
)

// Config is the file layout.
type Config struct {
	Version int    `yaml:"version"`
	Backend string `yaml:"backend"`
	// Graph is the working graph of the remote backend.
	Graph string `yaml:"graph"`
	// Lock serializes check-then-write sequences inside the process.
	// Defaults to true.
	Lock   *bool        `yaml:"lock,omitempty"`
	SQLite SQLiteConfig `yaml:"sqlite"`
	Remote RemoteConfig `yaml:"remote"`
	Log    LogConfig    `yaml:"log"`
	// Prefixes adds namespace -> prefix entries used when exporting.
	Prefixes map[string]string `yaml:"prefixes,omitempty"`
}

// SQLiteConfig holds durable in-process store settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RemoteConfig holds SPARQL endpoint settings.
type RemoteConfig struct {
	QueryURL  string   `yaml:"query_url"`
	UpdateURL string   `yaml:"update_url,omitempty"`
	Timeout   Duration `yaml:"timeout,omitempty"`
	Username  string   `yaml:"username,omitempty"`
	Password  string   `yaml:"password,omitempty"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load finds and loads the config file, or returns defaults if none found.
// The second result is the path that was read.
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return &cfg, path, nil
}

// Save writes config to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// DefaultConfig returns an in-memory setup.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = currentFileVersion
	}
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.Graph == "" {
		c.Graph = DefaultGraph
	}
	if c.Lock == nil {
		enabled := true
		c.Lock = &enabled
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = DefaultSQLitePath
	}
	if c.Remote.Timeout == 0 {
		c.Remote.Timeout = Duration(DefaultTimeout)
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func (c *Config) applyEnv() {
	if pw := os.Getenv(EnvRemotePassword); pw != "" {
		c.Remote.Password = pw
	}
}

// Locking reports whether the in-process lock is enabled.
func (c *Config) Locking() bool {
	return c.Lock == nil || *c.Lock
}

// Validate rejects unknown backends, missing endpoint URLs and unknown
// log settings. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLite.Path == "" {
			errs = append(errs, errors.New("sqlite.path is required for the sqlite backend"))
		}
	case BackendRemote:
		if c.Remote.QueryURL == "" {
			errs = append(errs, errors.New("remote.query_url is required for the remote backend"))
		}
		for _, f := range [][2]string{{"remote.query_url", c.Remote.QueryURL}, {"remote.update_url", c.Remote.UpdateURL}} {
			if f[1] == "" {
				continue
			}
			if u, err := url.Parse(f[1]); err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, fmt.Errorf("%s %q is not an absolute URL", f[0], f[1]))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (want %s, %s or %s)", c.Backend, BackendMemory, BackendSQLite, BackendRemote))
	}
	if u, err := url.Parse(c.Graph); err != nil || u.Scheme == "" {
		errs = append(errs, fmt.Errorf("graph %q is not an absolute IRI", c.Graph))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
