// Package config loads and validates everything-mcp configuration.
//
// Configuration is resolved in priority order:
//  1. Environment variables (EVERYTHING_MCP_*) - highest priority
//  2. Config file (--config flag or ~/.everything-mcp/config.yaml)
//  3. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied by NewConfig.
const (
	DefaultWindowClass    = "EVERYTHING"
	DefaultMaxResults     = 100
	DefaultRequestTimeout = 5 * time.Second
	DefaultPollInterval   = 2 * time.Millisecond
	DefaultStopTimeout    = 3 * time.Second
	DefaultQueueSize      = 64
	DefaultCacheTTL       = 2 * time.Second
	DefaultCacheEntries   = 128
)

// Duration wraps time.Duration with YAML string support ("5s", "250ms").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the complete everything-mcp configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Engine  EngineConfig  `yaml:"engine" json:"engine"`
	IPC     IPCConfig     `yaml:"ipc" json:"ipc"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Cache   CacheConfig   `yaml:"cache" json:"cache"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// EngineConfig identifies the external Everything engine instance.
type EngineConfig struct {
	// WindowClass is the class name of the engine's IPC control window.
	WindowClass string `yaml:"window_class" json:"window_class"`

	// Instance is the named Everything instance to target. Empty targets
	// the default (unnamed) instance.
	Instance string `yaml:"instance" json:"instance"`
}

// IPCConfig tunes the dispatcher and its worker.
type IPCConfig struct {
	// RequestTimeout is the default per-request deadline.
	RequestTimeout Duration `yaml:"request_timeout" json:"request_timeout"`

	// PollInterval is the worker's bounded sleep when idle.
	PollInterval Duration `yaml:"poll_interval" json:"poll_interval"`

	// StopTimeout bounds the wait for the worker to exit on disposal.
	StopTimeout Duration `yaml:"stop_timeout" json:"stop_timeout"`

	// QueueSize is the submission queue capacity.
	QueueSize int `yaml:"queue_size" json:"queue_size"`
}

// SearchConfig holds search defaults applied when callers omit options.
type SearchConfig struct {
	// MaxResults is the default page size for queries.
	MaxResults int `yaml:"max_results" json:"max_results"`
}

// CacheConfig tunes the facade's short-lived result cache.
type CacheConfig struct {
	Enabled    bool     `yaml:"enabled" json:"enabled"`
	TTL        Duration `yaml:"ttl" json:"ttl"`
	MaxEntries int      `yaml:"max_entries" json:"max_entries"`
}

// LoggingConfig configures file logging.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig returns a configuration populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Engine: EngineConfig{
			WindowClass: DefaultWindowClass,
		},
		IPC: IPCConfig{
			RequestTimeout: Duration(DefaultRequestTimeout),
			PollInterval:   Duration(DefaultPollInterval),
			StopTimeout:    Duration(DefaultStopTimeout),
			QueueSize:      DefaultQueueSize,
		},
		Search: SearchConfig{
			MaxResults: DefaultMaxResults,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        Duration(DefaultCacheTTL),
			MaxEntries: DefaultCacheEntries,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".everything-mcp", "config.yaml")
	}
	return filepath.Join(home, ".everything-mcp", "config.yaml")
}

// Load reads configuration from the given path, falling back to defaults
// when the path is empty and no default file exists. Environment overrides
// are applied last.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	explicit := path != ""
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file is fine; defaults apply.
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies EVERYTHING_MCP_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("EVERYTHING_MCP_WINDOW_CLASS"); v != "" {
		c.Engine.WindowClass = v
	}
	if v := os.Getenv("EVERYTHING_MCP_INSTANCE"); v != "" {
		c.Engine.Instance = v
	}
	if v := os.Getenv("EVERYTHING_MCP_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("EVERYTHING_MCP_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.IPC.RequestTimeout = Duration(d)
		}
	}
	if v := os.Getenv("EVERYTHING_MCP_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}
	if v := os.Getenv("EVERYTHING_MCP_CACHE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Cache.Enabled = b
		}
	}
}

// Validate checks configuration invariants and fills gaps with defaults.
func (c *Config) Validate() error {
	if c.Engine.WindowClass == "" {
		return fmt.Errorf("engine.window_class must not be empty")
	}
	if c.IPC.RequestTimeout <= 0 {
		c.IPC.RequestTimeout = Duration(DefaultRequestTimeout)
	}
	if c.IPC.PollInterval <= 0 {
		c.IPC.PollInterval = Duration(DefaultPollInterval)
	}
	if c.IPC.StopTimeout <= 0 {
		c.IPC.StopTimeout = Duration(DefaultStopTimeout)
	}
	if c.IPC.QueueSize <= 0 {
		c.IPC.QueueSize = DefaultQueueSize
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", c.Search.MaxResults)
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = DefaultCacheEntries
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = Duration(DefaultCacheTTL)
	}
	return nil
}

// Save writes the configuration to the given path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// WindowTitle returns the engine window title for the configured instance,
// or empty for the default instance (any title matches).
func (c *Config) WindowTitle() string {
	if c.Engine.Instance == "" {
		return ""
	}
	return c.Engine.Instance
}
