package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateToken(); err != nil {
		return err
	}
	if err := c.validateEndpoints(); err != nil {
		return err
	}
	if err := c.validateOutbox(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.IntervalMillis < minCaptureIntervalMs {
		return fmt.Errorf("capture.interval_ms must be at least %d", minCaptureIntervalMs)
	}
	if c.Capture.Enabled && c.Capture.Command == "" {
		return errors.New("capture.command must be set when capture.enabled is true")
	}
	if c.Capture.TimeoutSeconds <= 0 {
		return errors.New("capture.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if !c.Analysis.Enabled {
		return nil
	}
	if c.Analysis.IngestURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("analysis.ingest_url is required when analysis.enabled is true. Set SHOTCLOCK_INGEST_URL or edit %s (create with 'shotclock config init')", defaultPath)
	}
	if c.Analysis.RequestTimeout <= 0 {
		return errors.New("analysis.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateToken() error {
	if c.Analysis.Enabled && c.Token.Command == "" {
		return errors.New("token.command must be set when analysis.enabled is true")
	}
	if c.Token.TimeoutSeconds <= 0 {
		return errors.New("token.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateEndpoints() error {
	urls := map[string]string{
		"analysis.ingest_url": c.Analysis.IngestURL,
		"pairing.url":         c.Pairing.URL,
		"connectivity.url":    c.Connectivity.URL,
	}
	keys := make([]string, 0, len(urls))
	for key := range urls {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := validateHTTPURL(key, urls[key]); err != nil {
			return err
		}
	}
	return ensurePositiveMap(map[string]int{
		"connectivity.interval_seconds": c.Connectivity.IntervalSeconds,
		"connectivity.timeout_seconds":  c.Connectivity.TimeoutSeconds,
		"pairing.request_timeout":       c.Pairing.RequestTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateOutbox() error {
	if !c.Outbox.Enabled {
		return nil
	}
	if err := ensurePositiveMap(map[string]int{
		"outbox.drain_interval_seconds": c.Outbox.DrainIntervalSeconds,
		"outbox.max_attempts":           c.Outbox.MaxAttempts,
		"outbox.base_backoff_seconds":   c.Outbox.BaseBackoffSeconds,
		"outbox.max_backoff_seconds":    c.Outbox.MaxBackoffSeconds,
	}); err != nil {
		return err
	}
	if c.Outbox.MaxBackoffSeconds < c.Outbox.BaseBackoffSeconds {
		return errors.New("outbox.max_backoff_seconds must be >= outbox.base_backoff_seconds")
	}
	if !c.Analysis.Enabled {
		return errors.New("outbox.enabled requires analysis.enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}

func validateHTTPURL(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL", key)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", key)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
