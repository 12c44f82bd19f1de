package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/eargollo/finder/internal/search"
	"gopkg.in/yaml.v3"
)

// Config holds the optional settings loaded from a YAML file.
type Config struct {
	Workers       int    `yaml:"workers"`
	QueueCapacity int    `yaml:"queue_capacity"`
	PushRetries   *uint  `yaml:"push_retries"` // nil means default; 0 disables retries
	PushBackoffMs int    `yaml:"push_backoff_ms"`
	LogLevel      string `yaml:"log_level"`
}

// applyDefaults fills zero/empty fields with sensible defaults.
// QueueCapacity stays 0 (unbounded) unless set.
func (c *Config) applyDefaults() {
	def := search.DefaultConfig()
	if c.Workers == 0 {
		c.Workers = def.Workers
	}
	if c.PushRetries == nil {
		retries := def.PushRetries
		c.PushRetries = &retries
	}
	if c.PushBackoffMs == 0 {
		c.PushBackoffMs = int(def.PushBackoff / time.Millisecond)
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Default returns a Config with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load reads and parses the YAML config file at path. An empty path returns
// the defaults; a named file that does not exist is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Validate rejects values the search cannot run with.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.QueueCapacity < 0 {
		return fmt.Errorf("queue_capacity must not be negative, got %d", c.QueueCapacity)
	}
	if c.PushBackoffMs < 0 {
		return fmt.Errorf("push_backoff_ms must not be negative, got %d", c.PushBackoffMs)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// Search converts the file settings into search tuning parameters.
func (c *Config) Search() search.Config {
	retries := search.DefaultConfig().PushRetries
	if c.PushRetries != nil {
		retries = *c.PushRetries
	}
	return search.Config{
		Workers:       c.Workers,
		QueueCapacity: c.QueueCapacity,
		PushRetries:   retries,
		PushBackoff:   time.Duration(c.PushBackoffMs) * time.Millisecond,
	}
}

// ParseLogLevel converts a config string ("debug", "info", "warn", "error")
// to its slog.Level equivalent. Unknown values default to Warn.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
