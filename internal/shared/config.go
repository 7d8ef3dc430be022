package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Remote   RemoteConfig   `toml:"remote"`
	Sync     SyncConfig     `toml:"sync"`
	Player   PlayerConfig   `toml:"player"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig contains local store settings.
//
// Each user gets their own SQLite file under Dir.
type DatabaseConfig struct {
	Dir          string `toml:"dir"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RemoteConfig contains the remote store endpoint and credentials.
type RemoteConfig struct {
	BaseURL            string  `toml:"base_url"`
	Token              string  `toml:"token"`
	User               string  `toml:"user"`
	ReconnectPerSecond float64 `toml:"reconnect_per_second"`
	TimeoutSeconds     int     `toml:"timeout_seconds"`
}

// SyncConfig selects which models are mirrored.
type SyncConfig struct {
	Models []string `toml:"models"`
}

// PlayerConfig holds playback preferences restored on startup.
type PlayerConfig struct {
	Volume         float64 `toml:"volume"`
	Repeat         string  `toml:"repeat"`
	Shuffle        bool    `toml:"shuffle"`
	PollIntervalMS int     `toml:"poll_interval_ms"`
}

// LogConfig controls log level and the optional rotating log file.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks value ranges that TOML decoding cannot enforce.
func (c *Config) Validate() error {
	if c.Player.Volume < 0 || c.Player.Volume > 1 {
		return fmt.Errorf("%w: player.volume must be within [0, 1], got %v", ErrInvalidConfig, c.Player.Volume)
	}
	switch c.Player.Repeat {
	case "none", "repeat", "repeat-all", "repeat-one":
	default:
		return fmt.Errorf("%w: unknown player.repeat %q", ErrInvalidConfig, c.Player.Repeat)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Remote.ReconnectPerSecond <= 0 {
		return fmt.Errorf("%w: remote.reconnect_per_second must be positive", ErrInvalidConfig)
	}
	return nil
}

// DatabasePath returns the SQLite file for a user's namespace.
func (c *Config) DatabasePath(user string) string {
	return filepath.Join(c.Database.Dir, user+".db")
}

// RequestTimeout returns the HTTP timeout for remote calls.
func (c *Config) RequestTimeout() time.Duration {
	if c.Remote.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Remote.TimeoutSeconds) * time.Second
}

// PollInterval returns how often playback time is sampled.
func (c *Config) PollInterval() time.Duration {
	if c.Player.PollIntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(c.Player.PollIntervalMS) * time.Millisecond
}
