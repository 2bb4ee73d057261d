// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Admin    AdminConfig    `yaml:"admin"`
	Log      LogConfig      `yaml:"log"`
	Playlist PlaylistConfig `yaml:"playlist"`
	Source   SourceConfig   `yaml:"source"`
	Store    StoreConfig    `yaml:"store"`
}

// ServerConfig represents control API server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// AdminConfig represents admin-related configuration.
type AdminConfig struct {
	Token string `yaml:"token" validate:"required"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"omitempty,oneof=debug info warn warning error"`
	Output string `yaml:"output" default:"stdout"`
}

// PlaylistConfig represents playlist manager configuration.
type PlaylistConfig struct {
	Disabled               bool  `yaml:"disabled"`
	PollForPlaylist        *bool `yaml:"poll_for_playlist" default:"true"`
	RequestPeriodSec       int   `yaml:"request_period_sec" default:"180" validate:"gte=1,lte=86400"`
	EchoPlaylists          bool  `yaml:"echo_playlists"`
	FirstDownloadTimeoutMs int   `yaml:"first_download_timeout_ms" validate:"gte=0"`
}

// SourceConfig represents the playlist source configuration.
// Settings are decoded by the source factory according to Type.
type SourceConfig struct {
	Type     string         `yaml:"type" validate:"required,oneof=http player"`
	Settings map[string]any `yaml:"settings"`
}

// StoreConfig represents the local playlist store configuration.
type StoreConfig struct {
	Type string `yaml:"type" default:"file" validate:"omitempty,oneof=file sqlite"`
	Path string `yaml:"path" default:"data/playlist.json" validate:"required"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("PLAYLISTD_ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("PLAYLIST_SOURCE_CLIENT_SECRET"); v != "" && c.Source.Type == "http" {
		if c.Source.Settings == nil {
			c.Source.Settings = make(map[string]any)
		}
		c.Source.Settings["client_secret"] = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// FirstDownloadTimeout returns the first download callback timeout.
// Zero means wait indefinitely.
func (c *Config) FirstDownloadTimeout() time.Duration {
	return time.Duration(c.Playlist.FirstDownloadTimeoutMs) * time.Millisecond
}

// Switches exposes the playlist section to the playlist manager. The disable
// flag can be flipped at runtime; everything else is fixed at load time.
type Switches struct {
	disabled atomic.Bool
	polling  bool
	interval time.Duration
	echo     bool
}

// NewSwitches creates switches from the playlist configuration.
func NewSwitches(cfg PlaylistConfig) *Switches {
	s := &Switches{
		polling:  cfg.PollForPlaylist == nil || *cfg.PollForPlaylist,
		interval: time.Duration(cfg.RequestPeriodSec) * time.Second,
		echo:     cfg.EchoPlaylists,
	}
	s.disabled.Store(cfg.Disabled)
	return s
}

// IsDisabled reports whether the playlist feature is globally disabled.
func (s *Switches) IsDisabled() bool {
	return s.disabled.Load()
}

// SetDisabled turns the playlist feature off or on.
func (s *Switches) SetDisabled(disabled bool) {
	s.disabled.Store(disabled)
}

// PollingEnabled reports whether the playlist is polled periodically while
// in the foreground.
func (s *Switches) PollingEnabled() bool {
	return s.polling
}

// PollInterval returns the polling period.
func (s *Switches) PollInterval() time.Duration {
	return s.interval
}

// EchoPlaylists reports whether received playlists are logged.
func (s *Switches) EchoPlaylists() bool {
	return s.echo
}
