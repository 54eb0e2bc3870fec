package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir      string `toml:"state_dir"`
	LogDir        string `toml:"log_dir"`
	ScreenshotDir string `toml:"screenshot_dir"`
}

// Capture contains configuration for the periodic screen capture cycle.
type Capture struct {
	Enabled        bool     `toml:"enabled"`
	IntervalMillis int      `toml:"interval_ms"`
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	ListCommand    string   `toml:"list_command"`
	ListArgs       []string `toml:"list_args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	RetentionDays  int      `toml:"retention_days"`
}

// Analysis contains configuration for remote AI classification uploads.
type Analysis struct {
	Enabled        bool   `toml:"enabled"`
	IngestURL      string `toml:"ingest_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Token contains configuration for the external identity token command.
type Token struct {
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	CacheMinutes   int      `toml:"cache_minutes"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Pairing contains configuration for the pairing function.
type Pairing struct {
	URL            string `toml:"url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Connectivity contains configuration for the reachability probe.
type Connectivity struct {
	URL             string `toml:"url"`
	IntervalSeconds int    `toml:"interval_seconds"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// Outbox contains configuration for re-delivery of locally saved samples.
type Outbox struct {
	Enabled              bool `toml:"enabled"`
	DrainIntervalSeconds int  `toml:"drain_interval_seconds"`
	BatchSize            int  `toml:"batch_size"`
	MaxAttempts          int  `toml:"max_attempts"`
	BaseBackoffSeconds   int  `toml:"base_backoff_seconds"`
	MaxBackoffSeconds    int  `toml:"max_backoff_seconds"`
	DeleteAfterUpload    bool `toml:"delete_after_upload"`
	SkipWhenOffline      bool `toml:"skip_when_offline"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Pairing        bool   `toml:"pairing"`
	Connectivity   bool   `toml:"connectivity"`
	Outbox         bool   `toml:"outbox"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for shotclock.
//
// Configuration sections by subsystem:
//   - Paths: state, log, and screenshot directories
//   - Capture: interval, screenshot toggle, and the external capture command
//   - Analysis: AI analysis toggle and ingestion endpoint
//   - Token: identity token command and cache lifetime
//   - Pairing: pairing function endpoint
//   - Connectivity: reachability probe target and cadence
//   - Outbox: durable re-delivery of locally saved samples
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Capture       Capture       `toml:"capture"`
	Analysis      Analysis      `toml:"analysis"`
	Token         Token         `toml:"token"`
	Pairing       Pairing       `toml:"pairing"`
	Connectivity  Connectivity  `toml:"connectivity"`
	Outbox        Outbox        `toml:"outbox"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shotclock.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The screenshot directory is created lazily by the persister.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CaptureInterval returns the capture tick period.
func (c *Config) CaptureInterval() time.Duration {
	return time.Duration(c.Capture.IntervalMillis) * time.Millisecond
}

// CaptureTimeout bounds a single capture command invocation.
func (c *Config) CaptureTimeout() time.Duration {
	return seconds(c.Capture.TimeoutSeconds, defaultCaptureTimeout)
}

// TokenCacheLifetime returns how long an issued identity token is reused.
func (c *Config) TokenCacheLifetime() time.Duration {
	if c.Token.CacheMinutes <= 0 {
		return defaultTokenCacheMinutes * time.Minute
	}
	return time.Duration(c.Token.CacheMinutes) * time.Minute
}

// TokenTimeout bounds a single token command invocation.
func (c *Config) TokenTimeout() time.Duration {
	return seconds(c.Token.TimeoutSeconds, defaultTokenTimeout)
}

// UploadTimeout bounds a single ingestion request.
func (c *Config) UploadTimeout() time.Duration {
	return seconds(c.Analysis.RequestTimeout, defaultAnalysisTimeout)
}

// PairingTimeout bounds a single pairing request.
func (c *Config) PairingTimeout() time.Duration {
	return seconds(c.Pairing.RequestTimeout, defaultPairingTimeout)
}

// ConnectivityInterval returns the probe cadence.
func (c *Config) ConnectivityInterval() time.Duration {
	return seconds(c.Connectivity.IntervalSeconds, defaultConnectivityInterval)
}

// ConnectivityTimeout bounds a single probe.
func (c *Config) ConnectivityTimeout() time.Duration {
	return seconds(c.Connectivity.TimeoutSeconds, defaultConnectivityTimeout)
}

// OutboxDrainInterval returns the outbox drain cadence.
func (c *Config) OutboxDrainInterval() time.Duration {
	return seconds(c.Outbox.DrainIntervalSeconds, defaultOutboxDrainInterval)
}

// OutboxBackoff returns the base and ceiling of the re-upload backoff.
func (c *Config) OutboxBackoff() (base, ceiling time.Duration) {
	return seconds(c.Outbox.BaseBackoffSeconds, defaultOutboxBaseBackoff),
		seconds(c.Outbox.MaxBackoffSeconds, defaultOutboxMaxBackoff)
}

// NotificationTimeout bounds a single ntfy request.
func (c *Config) NotificationTimeout() time.Duration {
	return seconds(c.Notifications.RequestTimeout, defaultNotifyTimeout)
}

// SocketPath returns the daemon control socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "shotclock.sock")
}

// LockPath returns the daemon single-instance lock location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "shotclock.lock")
}

// PIDPath returns the daemon PID file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "shotclock.pid")
}

// IdentityPath returns the persisted device identity location.
func (c *Config) IdentityPath() string {
	return filepath.Join(c.Paths.StateDir, "identity.json")
}

// OutboxPath returns the outbox database location.
func (c *Config) OutboxPath() string {
	return filepath.Join(c.Paths.StateDir, "outbox.db")
}

func seconds(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
