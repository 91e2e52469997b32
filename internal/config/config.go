// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vinayprograms/codeaudit/internal/usage"
)

// FileName is the per-project configuration file.
const FileName = "codeaudit.toml"

// Config represents the codeaudit configuration.
type Config struct {
	Agent     AgentConfig                 `toml:"agent"`
	Run       RunConfig                   `toml:"run"`
	Pricing   map[string]usage.Rate       `toml:"pricing"` // Overrides and additions to the built-in rates
	Agents    map[string]AgentModelConfig `toml:"agents"`  // Extra accepted models per backend
	Logging   LoggingConfig               `toml:"logging"`
	Storage   StorageConfig               `toml:"storage"`
	Telemetry TelemetryConfig             `toml:"telemetry"`
	Events    EventsConfig                `toml:"events"`
}

// AgentConfig holds defaults for agent and model resolution.
type AgentConfig struct {
	Name  string `toml:"name"`
	Model string `toml:"model"`
}

// RunConfig controls step execution.
type RunConfig struct {
	Timeout      Duration `toml:"timeout"`       // Per-step wall-clock limit
	ArtifactsDir string   `toml:"artifacts_dir"` // Relative to the project root
	ReportsDir   string   `toml:"reports_dir"`
	StripEnv     []string `toml:"strip_env"` // Variables removed from the agent environment
	RulesDir     string   `toml:"rules_dir"`
}

// AgentModelConfig extends a backend's accepted models.
type AgentModelConfig struct {
	Models []string `toml:"models"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level string `toml:"level"` // debug|info|warn|error
	File  string `toml:"file"`
}

// StorageConfig contains run session settings.
type StorageConfig struct {
	SessionsDir string `toml:"sessions_dir"`
	Record      bool   `toml:"record"`
}

// TelemetryConfig contains OTLP trace export settings.
type TelemetryConfig struct {
	Enabled  bool              `toml:"enabled"`
	Endpoint string            `toml:"endpoint"` // host:port or full URL
	Insecure bool              `toml:"insecure"` // Disable TLS
	Headers  map[string]string `toml:"headers"`  // Auth headers (e.g., x-honeycomb-team)
}

// EventsConfig contains NATS publication settings.
type EventsConfig struct {
	NATSURL string `toml:"nats_url"`
	Subject string `toml:"subject"`
}

// Duration is a time.Duration written as a string ("600s", "10m").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// New creates a new config with defaults.
func New() *Config {
	return &Config{
		Run: RunConfig{
			Timeout:      Duration{600 * time.Second},
			ArtifactsDir: "reports/.artifacts",
			ReportsDir:   "reports",
			StripEnv:     []string{"CLAUDECODE", "CLAUDE_CODE"},
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
		Storage: StorageConfig{
			SessionsDir: "reports/.sessions",
			Record:      true,
		},
		Events: EventsConfig{
			Subject: "codeaudit",
		},
	}
}

// Default returns a default configuration.
func Default() *Config {
	return New()
}

// LoadFile loads configuration from a TOML file. Keys absent from the file
// keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("failed to parse config: unknown key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values the decoder cannot.
func (c *Config) Validate() error {
	if c.Run.Timeout.Duration <= 0 {
		return errors.New("run.timeout must be positive")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	for model, rate := range c.Pricing {
		if rate.Input < 0 || rate.Output < 0 || rate.CacheRead < 0 {
			return fmt.Errorf("pricing.%s: rates must not be negative", model)
		}
	}
	return nil
}

// Candidates lists the files Load tries, in order, when no explicit path is
// given: ./codeaudit.toml, then the user config directory.
func Candidates(workDir string) []string {
	paths := []string{filepath.Join(workDir, FileName)}
	if dir := userConfigDir(); dir != "" {
		paths = append(paths, filepath.Join(dir, "codeaudit", "config.toml"))
	}
	return paths
}

func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config")
}

// Load resolves the configuration. An explicit path must exist. Otherwise
// the first existing candidate is used, or defaults when there is none. The
// returned path is empty when defaults are used.
func Load(explicit, workDir string) (*Config, string, error) {
	if explicit != "" {
		cfg, err := LoadFile(explicit)
		if err != nil {
			return nil, "", err
		}
		return cfg, explicit, nil
	}
	for _, path := range Candidates(workDir) {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		cfg, err := LoadFile(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	return New(), "", nil
}

// PricingTable returns the built-in rates with configured overrides applied.
func (c *Config) PricingTable() usage.Pricing {
	return usage.DefaultPricing().With(c.Pricing)
}

// ExtraModels returns configured model additions keyed by backend name.
func (c *Config) ExtraModels() map[string][]string {
	out := make(map[string][]string, len(c.Agents))
	for name, a := range c.Agents {
		if len(a.Models) > 0 {
			out[name] = a.Models
		}
	}
	return out
}

// Resolve makes a path relative to workDir unless it is absolute.
func Resolve(workDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workDir, path)
}
