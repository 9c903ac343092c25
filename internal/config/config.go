// Package config loads and saves the crewclock client configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultQueueKey names the slot holding the offline clock queue.
const DefaultQueueKey = "offline_clock_queue"

// Config holds the client configuration.
type Config struct {
	// APIBase is the base URL of the project-management backend.
	APIBase string `yaml:"api_base"`
	// DBPath is the local SQLite file holding the offline queue.
	DBPath string `yaml:"db_path"`
	// QueueKey names the slot the pending actions are stored under.
	QueueKey string `yaml:"queue_key"`
	// RequestTimeout bounds every backend call.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// PingInterval is how often the connectivity monitor polls the backend.
	PingInterval time.Duration `yaml:"ping_interval"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Dir returns ~/.crewclock, falling back to the working directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".crewclock"
	}
	return filepath.Join(home, ".crewclock")
}

// DefaultPath returns ~/.crewclock/config.yaml.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		APIBase:        "http://127.0.0.1:8000",
		DBPath:         filepath.Join(Dir(), "crewclock.db"),
		QueueKey:       DefaultQueueKey,
		RequestTimeout: 10 * time.Second,
		PingInterval:   5 * time.Second,
		LogLevel:       "info",
	}
}

// LoadConfig loads configuration from a YAML file. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to a YAML file, creating parent directories if needed.
func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBase)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_base must be an absolute http(s) URL, got %q", c.APIBase)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.QueueKey == "" {
		return fmt.Errorf("queue_key must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.PingInterval < 100*time.Millisecond {
		return fmt.Errorf("ping_interval must be at least 100ms")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be: debug, info, warn, or error", c.LogLevel)
	}

	return nil
}
