package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCapture()
	c.normalizeEndpoints()
	c.normalizeToken()
	c.normalizeOutbox()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ScreenshotDir) == "" {
		c.Paths.ScreenshotDir = defaultScreenshotDir
	}
	if c.Paths.ScreenshotDir, err = expandPath(strings.TrimSpace(c.Paths.ScreenshotDir)); err != nil {
		return fmt.Errorf("paths.screenshot_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCapture() {
	c.Capture.Command = strings.TrimSpace(c.Capture.Command)
	c.Capture.ListCommand = strings.TrimSpace(c.Capture.ListCommand)
	if c.Capture.RetentionDays < 0 {
		c.Capture.RetentionDays = 0
	}
}

func (c *Config) normalizeEndpoints() {
	c.Analysis.IngestURL = strings.TrimSpace(c.Analysis.IngestURL)
	if c.Analysis.IngestURL == "" {
		if value, ok := os.LookupEnv("SHOTCLOCK_INGEST_URL"); ok {
			c.Analysis.IngestURL = strings.TrimSpace(value)
		}
	}
	c.Pairing.URL = strings.TrimSpace(c.Pairing.URL)
	if c.Pairing.URL == "" {
		if value, ok := os.LookupEnv("SHOTCLOCK_PAIRING_URL"); ok {
			c.Pairing.URL = strings.TrimSpace(value)
		}
	}
	c.Connectivity.URL = strings.TrimSpace(c.Connectivity.URL)
	if c.Connectivity.URL == "" {
		c.Connectivity.URL = defaultConnectivityURL
	}
}

func (c *Config) normalizeToken() {
	c.Token.Command = strings.TrimSpace(c.Token.Command)
	if c.Token.CacheMinutes <= 0 {
		c.Token.CacheMinutes = defaultTokenCacheMinutes
	}
}

func (c *Config) normalizeOutbox() {
	if c.Outbox.BatchSize <= 0 {
		c.Outbox.BatchSize = defaultOutboxBatchSize
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("SHOTCLOCK_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
