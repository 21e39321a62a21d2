package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pingonet/pingo-core/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()

	if cfg.Discovery.Port != 15353 {
		t.Errorf("Discovery.Port = %d, want 15353", cfg.Discovery.Port)
	}
	if cfg.Discovery.AnnounceInterval != 3*time.Second {
		t.Errorf("Discovery.AnnounceInterval = %v, want 3s", cfg.Discovery.AnnounceInterval)
	}
	if cfg.Discovery.PeerTimeout != 15*time.Second {
		t.Errorf("Discovery.PeerTimeout = %v, want 15s", cfg.Discovery.PeerTimeout)
	}
	if cfg.Signaling.PreferredPort != 45678 {
		t.Errorf("Signaling.PreferredPort = %d, want 45678", cfg.Signaling.PreferredPort)
	}
	if cfg.Media.PreferredPort != 18080 {
		t.Errorf("Media.PreferredPort = %d, want 18080", cfg.Media.PreferredPort)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want info/json", cfg.Log)
	}

	if err := config.Validate(cfg); err != nil {
		t.Errorf("DefaultConfig() failed validation: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	t.Parallel()

	yamlContent := `
discovery:
  port: 16000
  announce_interval: 5s
log:
  level: debug
  format: text
`
	dir := t.TempDir()
	path := filepath.Join(dir, "pingo.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Discovery.Port != 16000 {
		t.Errorf("Discovery.Port = %d, want 16000", cfg.Discovery.Port)
	}
	if cfg.Discovery.AnnounceInterval != 5*time.Second {
		t.Errorf("Discovery.AnnounceInterval = %v, want 5s", cfg.Discovery.AnnounceInterval)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want debug/text", cfg.Log)
	}
	// Untouched fields inherit defaults.
	if cfg.Signaling.PreferredPort != 45678 {
		t.Errorf("Signaling.PreferredPort = %d, want default 45678", cfg.Signaling.PreferredPort)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PINGO_DISCOVERY_PORT", "17000")
	t.Setenv("PINGO_LOG_LEVEL", "warn")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Discovery.Port != 17000 {
		t.Errorf("Discovery.Port = %d, want 17000", cfg.Discovery.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
}

func TestValidateRejectsBadPorts(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Discovery.Port = 0
	if err := config.Validate(cfg); err == nil {
		t.Error("Validate() = nil, want error for port 0")
	}

	cfg = config.DefaultConfig()
	cfg.Signaling.PreferredPort = 70000
	if err := config.Validate(cfg); err == nil {
		t.Error("Validate() = nil, want error for out-of-range port")
	}
}

func TestInstanceSuffix(t *testing.T) {
	cfg := config.DefaultConfig()
	if got := cfg.InstanceSuffix(); got != "" {
		t.Errorf("InstanceSuffix() = %q, want empty", got)
	}

	cfg.Instance = "work"
	if got := cfg.InstanceSuffix(); got != "_work" {
		t.Errorf("InstanceSuffix() = %q, want _work", got)
	}
}

func TestStorePathHonorsExplicitOverride(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Path = "/tmp/custom.db"

	got, err := cfg.StorePath()
	if err != nil {
		t.Fatalf("StorePath() error = %v", err)
	}
	if got != "/tmp/custom.db" {
		t.Errorf("StorePath() = %q, want explicit override", got)
	}
}

func TestStorePathNamespacesByInstanceWhenUnset(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Instance = "work"

	got, err := cfg.StorePath()
	if err != nil {
		t.Fatalf("StorePath() error = %v", err)
	}
	if !strings.Contains(got, "Pingo_work") || !strings.HasSuffix(got, "pingo.db") {
		t.Errorf("StorePath() = %q, want a Pingo_work-namespaced path ending in pingo.db", got)
	}
}

func TestMediaStorageDirHonorsExplicitOverride(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Media.StorageDir = "/tmp/files"

	got, err := cfg.MediaStorageDir()
	if err != nil {
		t.Fatalf("MediaStorageDir() error = %v", err)
	}
	if got != "/tmp/files" {
		t.Errorf("MediaStorageDir() = %q, want explicit override", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"debug":   "DEBUG",
		"info":    "INFO",
		"warn":    "WARN",
		"error":   "ERROR",
		"bogus":   "INFO",
		"DeBuG":   "DEBUG",
		"":        "INFO",
		"VERBOSE": "INFO",
	}

	for input, want := range cases {
		if got := config.ParseLogLevel(input).String(); got != want {
			t.Errorf("ParseLogLevel(%q) = %q, want %q", input, got, want)
		}
	}
}
