package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"shotclock/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "shotclock")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.ScreenshotDir != filepath.Join(tempHome, "Desktop", "screenshots") {
		t.Fatalf("unexpected screenshot dir: %q", cfg.Paths.ScreenshotDir)
	}
	if cfg.Capture.Enabled {
		t.Fatal("expected screenshots disabled by default")
	}
	if cfg.Analysis.Enabled {
		t.Fatal("expected analysis disabled by default")
	}
	if cfg.CaptureInterval() != 5*time.Minute {
		t.Fatalf("unexpected capture interval: %s", cfg.CaptureInterval())
	}
	if cfg.TokenCacheLifetime() != 50*time.Minute {
		t.Fatalf("unexpected token cache lifetime: %s", cfg.TokenCacheLifetime())
	}
	if cfg.SocketPath() != filepath.Join(wantState, "shotclock.sock") {
		t.Fatalf("unexpected socket path: %q", cfg.SocketPath())
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "shotclock.toml")
	content := `
[paths]
state_dir = "~/state"
screenshot_dir = "~/shots"

[capture]
enabled = true
interval_ms = 5000

[analysis]
enabled = true
ingest_url = "https://ingest.example.com/analyze"

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, "state") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.Paths.ScreenshotDir != filepath.Join(tempHome, "shots") {
		t.Fatalf("unexpected screenshot dir: %q", cfg.Paths.ScreenshotDir)
	}
	if !cfg.Capture.Enabled || cfg.CaptureInterval() != 5*time.Second {
		t.Fatalf("unexpected capture settings: %+v", cfg.Capture)
	}
	if !cfg.Analysis.Enabled {
		t.Fatal("expected analysis enabled")
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging settings, got %+v", cfg.Logging)
	}
	if cfg.Capture.Command != "import" {
		t.Fatalf("expected default capture command preserved, got %q", cfg.Capture.Command)
	}
}

func TestEnvFallbacksForEndpoints(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SHOTCLOCK_INGEST_URL", " https://ingest.example.com/ ")
	t.Setenv("SHOTCLOCK_PAIRING_URL", "https://pair.example.com/validate")
	t.Setenv("SHOTCLOCK_NTFY_TOPIC", "https://ntfy.sh/shots")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Analysis.IngestURL != "https://ingest.example.com/" {
		t.Fatalf("expected ingest url from env, got %q", cfg.Analysis.IngestURL)
	}
	if cfg.Pairing.URL != "https://pair.example.com/validate" {
		t.Fatalf("expected pairing url from env, got %q", cfg.Pairing.URL)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/shots" {
		t.Fatalf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "interval_ms") {
		t.Fatalf("sample config missing capture interval: %s", contents)
	}

	cfg := config.Default()
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
	if !strings.Contains(cfg.Paths.StateDir, "shotclock") {
		t.Fatalf("expected state dir to contain shotclock, got %q", cfg.Paths.StateDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "interval too short",
			mutate: func(c *config.Config) { c.Capture.IntervalMillis = 10 },
			want:   "capture.interval_ms",
		},
		{
			name:   "analysis without ingest url",
			mutate: func(c *config.Config) { c.Analysis.Enabled = true },
			want:   "analysis.ingest_url",
		},
		{
			name: "bad pairing url",
			mutate: func(c *config.Config) {
				c.Pairing.URL = "ftp://pair.example.com"
			},
			want: "pairing.url",
		},
		{
			name: "outbox without analysis",
			mutate: func(c *config.Config) {
				c.Outbox.Enabled = true
			},
			want: "outbox.enabled requires analysis.enabled",
		},
		{
			name: "outbox backoff inverted",
			mutate: func(c *config.Config) {
				c.Analysis.Enabled = true
				c.Analysis.IngestURL = "https://ingest.example.com"
				c.Outbox.Enabled = true
				c.Outbox.BaseBackoffSeconds = 100
				c.Outbox.MaxBackoffSeconds = 10
			},
			want: "outbox.max_backoff_seconds",
		},
		{
			name:   "unknown log level",
			mutate: func(c *config.Config) { c.Logging.Level = "verbose" },
			want:   "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
