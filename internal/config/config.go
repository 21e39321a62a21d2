// Package config manages the Pingo daemon configuration using koanf/v2.
//
// Load layers a YAML file and then PINGO_-prefixed environment variables
// on top of DefaultConfig(). There is no command-line flag layer.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete pingod daemon configuration.
type Config struct {
	Instance  string          `koanf:"instance"`
	Discovery DiscoveryConfig `koanf:"discovery"`
	Signaling SignalingConfig `koanf:"signaling"`
	Media     MediaConfig     `koanf:"media"`
	Store     StoreConfig     `koanf:"store"`
	Admin     AdminConfig     `koanf:"admin"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Log       LogConfig       `koanf:"log"`
}

// DiscoveryConfig holds the UDP presence-broadcast configuration.
type DiscoveryConfig struct {
	// Port is the UDP port Discovery binds and broadcasts on.
	Port int `koanf:"port"`
	// AnnounceInterval is parsed and validated but not passed to Discovery,
	// which broadcasts a Hello every 3 s regardless.
	AnnounceInterval time.Duration `koanf:"announce_interval"`
	// PeerTimeout is parsed and validated but not passed to Discovery,
	// which marks a peer offline after 15 s unseen regardless.
	PeerTimeout time.Duration `koanf:"peer_timeout"`
}

// SignalingConfig holds the UDP message-bus configuration.
type SignalingConfig struct {
	// PreferredPort is tried first; Signaling falls back to an ephemeral port.
	PreferredPort int `koanf:"preferred_port"`
}

// MediaConfig holds the MediaServer configuration.
type MediaConfig struct {
	// PreferredPort is tried first; MediaServer falls back to an OS-assigned port.
	PreferredPort int `koanf:"preferred_port"`
	// StorageDir overrides the default <data_local>/Pingo/shared_files root.
	StorageDir string `koanf:"storage_dir"`
}

// StoreConfig holds the persistence layer configuration.
type StoreConfig struct {
	// Path overrides the default <data_local>/Pingo[_<instance>]/pingo.db location.
	Path string `koanf:"path"`
}

// AdminConfig holds the introspection HTTP surface configuration.
type AdminConfig struct {
	// Addr is the HTTP listen address (e.g., ":8787").
	Addr string `koanf:"addr"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with the spec-mandated defaults
// (discovery port 15353, signaling preferred port 45678, media preferred
// port 18080, 3s announce interval, 15s peer timeout).
func DefaultConfig() *Config {
	return &Config{
		Discovery: DiscoveryConfig{
			Port:             15353,
			AnnounceInterval: 3 * time.Second,
			PeerTimeout:      15 * time.Second,
		},
		Signaling: SignalingConfig{
			PreferredPort: 45678,
		},
		Media: MediaConfig{
			PreferredPort: 18080,
		},
		Admin: AdminConfig{
			Addr: ":8787",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for Pingo configuration.
// Variables are named PINGO_<section>_<key>, e.g., PINGO_DISCOVERY_PORT.
const envPrefix = "PINGO_"

// Load reads configuration from a YAML file at path (skipped if path is
// empty or the file does not exist), overlays environment variable
// overrides (PINGO_ prefix), and merges on top of DefaultConfig(). Missing
// fields inherit defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config from %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// envKeyMapper transforms PINGO_DISCOVERY_PORT -> discovery.port.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"discovery.port":              defaults.Discovery.Port,
		"discovery.announce_interval": defaults.Discovery.AnnounceInterval.String(),
		"discovery.peer_timeout":      defaults.Discovery.PeerTimeout.String(),
		"signaling.preferred_port":    defaults.Signaling.PreferredPort,
		"media.preferred_port":        defaults.Media.PreferredPort,
		"admin.addr":                  defaults.Admin.Addr,
		"metrics.addr":                defaults.Metrics.Addr,
		"metrics.path":                defaults.Metrics.Path,
		"log.level":                   defaults.Log.Level,
		"log.format":                  defaults.Log.Format,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrInvalidDiscoveryPort indicates the discovery port is out of range.
	ErrInvalidDiscoveryPort = errors.New("discovery.port must be between 1 and 65535")

	// ErrInvalidAnnounceInterval indicates the announce interval is not positive.
	ErrInvalidAnnounceInterval = errors.New("discovery.announce_interval must be > 0")

	// ErrInvalidPeerTimeout indicates the peer timeout is not positive.
	ErrInvalidPeerTimeout = errors.New("discovery.peer_timeout must be > 0")

	// ErrInvalidSignalingPort indicates the signaling preferred port is out of range.
	ErrInvalidSignalingPort = errors.New("signaling.preferred_port must be between 1 and 65535")

	// ErrInvalidMediaPort indicates the media preferred port is out of range.
	ErrInvalidMediaPort = errors.New("media.preferred_port must be between 1 and 65535")
)

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.Discovery.Port <= 0 || cfg.Discovery.Port > 65535 {
		return ErrInvalidDiscoveryPort
	}
	if cfg.Discovery.AnnounceInterval <= 0 {
		return ErrInvalidAnnounceInterval
	}
	if cfg.Discovery.PeerTimeout <= 0 {
		return ErrInvalidPeerTimeout
	}
	if cfg.Signaling.PreferredPort <= 0 || cfg.Signaling.PreferredPort > 65535 {
		return ErrInvalidSignalingPort
	}
	if cfg.Media.PreferredPort <= 0 || cfg.Media.PreferredPort > 65535 {
		return ErrInvalidMediaPort
	}

	return nil
}

// -------------------------------------------------------------------------
// Instance namespacing (spec.md §6)
// -------------------------------------------------------------------------

// InstanceSuffix returns "_<INSTANCE>" when an instance name is configured
// (via config Instance or the PINGO_INSTANCE environment variable), or ""
// otherwise. Used to namespace the store and downloads directories so that
// multiple Pingo instances can coexist on one host.
func (c *Config) InstanceSuffix() string {
	inst := c.Instance
	if inst == "" {
		inst = os.Getenv("PINGO_INSTANCE")
	}
	if inst == "" {
		return ""
	}
	return "_" + inst
}

// StorePath returns the Store's SQLite file location: Store.Path if set,
// otherwise <data_local>/Pingo[_<INSTANCE>]/pingo.db (spec.md §6).
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve data directory: %w", err)
	}
	return filepath.Join(base, "Pingo"+c.InstanceSuffix(), "pingo.db"), nil
}

// MediaStorageDir returns the MediaServer's blob root: Media.StorageDir
// if set, otherwise <data_local>/Pingo/shared_files (spec.md §4.6).
func (c *Config) MediaStorageDir() (string, error) {
	if c.Media.StorageDir != "" {
		return c.Media.StorageDir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve data directory: %w", err)
	}
	return filepath.Join(base, "Pingo", "shared_files"), nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
