package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/abelbrown/wikiwatch/internal/filters"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultStreamURL is the local stream proxy the viewer was built against.
const DefaultStreamURL = "http://localhost:8000/api/stream"

// Config is the persistent application configuration
type Config struct {
	Stream  StreamConfig    `json:"stream" yaml:"stream"`
	Filters filters.Filters `json:"filters" yaml:"filters"`
	UI      UIConfig        `json:"ui" yaml:"ui"`
	Log     LogConfig       `json:"log" yaml:"log"`
}

// StreamConfig is the buffer and subscription surface.
type StreamConfig struct {
	URL              string `json:"subscription_url" yaml:"subscription_url"`
	RetentionSeconds int    `json:"retention_seconds" yaml:"retention_seconds"` // 0 = never purge
	Capacity         int    `json:"capacity" yaml:"capacity"`                   // max visible events
	ConnectTimeout   string `json:"connect_timeout,omitempty" yaml:"connect_timeout,omitempty"`
	AutoConnect      bool   `json:"auto_connect" yaml:"auto_connect"`
}

// UIConfig holds UI preferences
type UIConfig struct {
	Theme       string `json:"theme" yaml:"theme"`               // "dark" or "light"
	ShowComment bool   `json:"show_comment" yaml:"show_comment"` // comment column
}

// LogConfig controls the log file and event journal.
type LogConfig struct {
	Level   string `json:"level" yaml:"level"`
	Journal bool   `json:"journal" yaml:"journal"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Stream: StreamConfig{
			URL:              DefaultStreamURL,
			RetentionSeconds: 10,
			Capacity:         200,
			ConnectTimeout:   "10s",
		},
		Filters: filters.Default(),
		UI: UIConfig{
			Theme:       "dark",
			ShowComment: true,
		},
		Log: LogConfig{
			Level:   "info",
			Journal: true,
		},
	}
}

// DataDir is ~/.wikiwatch, holding the config file, logs and the journal.
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".wikiwatch")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.json")
}

// JournalPath returns the path of the JSONL event journal.
func JournalPath() string {
	return filepath.Join(DataDir(), "events.jsonl")
}

// Load reads the default config file, or returns defaults if there is none.
// Environment overrides are applied either way.
func Load() (*Config, error) {
	cfg, err := LoadFile(ConfigPath())
	if errors.Is(err, os.ErrNotExist) {
		cfg = DefaultConfig()
	} else if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads path over the defaults. .yaml and .yml files are YAML;
// anything else is JSON, which may carry comments and trailing commas.
// Environment overrides are not applied.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Save writes config to the default path.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes config as indented JSON.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides stream settings from WIKIWATCH_URL,
// WIKIWATCH_RETENTION and WIKIWATCH_CAPACITY.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("WIKIWATCH_URL"); v != "" {
		c.Stream.URL = v
	}
	if v := os.Getenv("WIKIWATCH_RETENTION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: WIKIWATCH_RETENTION=%q", ErrInvalidConfig, v)
		}
		c.Stream.RetentionSeconds = n
	}
	if v := os.Getenv("WIKIWATCH_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: WIKIWATCH_CAPACITY=%q", ErrInvalidConfig, v)
		}
		c.Stream.Capacity = n
	}
	return nil
}

// Validate fails fast on values the buffer or the stream server would
// reject. Nothing is clamped.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Stream.URL) == "" {
		return fmt.Errorf("%w: subscription_url is empty", ErrInvalidConfig)
	}
	if c.Stream.RetentionSeconds < 0 {
		return fmt.Errorf("%w: retention_seconds must not be negative, got %d", ErrInvalidConfig, c.Stream.RetentionSeconds)
	}
	if c.Stream.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1, got %d", ErrInvalidConfig, c.Stream.Capacity)
	}
	if c.Stream.ConnectTimeout != "" {
		if _, err := c.ConnectTimeout(); err != nil {
			return err
		}
	}
	if err := c.Filters.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch c.UI.Theme {
	case "", "dark", "light":
	default:
		return fmt.Errorf("%w: theme must be dark or light, got %q", ErrInvalidConfig, c.UI.Theme)
	}
	return nil
}

// SubscriptionURL is the stream URL with the filters applied.
func (c *Config) SubscriptionURL() (string, error) {
	return filters.BuildURL(c.Stream.URL, c.Filters)
}

// ConnectTimeout parses Stream.ConnectTimeout. Empty means 10s.
func (c *Config) ConnectTimeout() (time.Duration, error) {
	if c.Stream.ConnectTimeout == "" {
		return 10 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Stream.ConnectTimeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: connect_timeout %q", ErrInvalidConfig, c.Stream.ConnectTimeout)
	}
	return d, nil
}
