package config

const (
	defaultConfigPath           = "~/.config/shotclock/config.toml"
	defaultStateDir             = "~/.local/share/shotclock"
	defaultLogDir               = "~/.local/share/shotclock/logs"
	defaultScreenshotDir        = "~/Desktop/screenshots"
	defaultCaptureIntervalMs    = 300000
	defaultCaptureCommand       = "import"
	defaultCaptureTimeout       = 30
	defaultAnalysisTimeout      = 30
	defaultTokenCommand         = "gcloud"
	defaultTokenCacheMinutes    = 50
	defaultTokenTimeout         = 30
	defaultPairingTimeout       = 15
	defaultConnectivityURL      = "https://clients3.google.com/generate_204"
	defaultConnectivityInterval = 60
	defaultConnectivityTimeout  = 5
	defaultOutboxDrainInterval  = 60
	defaultOutboxBatchSize      = 10
	defaultOutboxMaxAttempts    = 8
	defaultOutboxBaseBackoff    = 30
	defaultOutboxMaxBackoff     = 3600
	defaultNotifyTimeout        = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30

	minCaptureIntervalMs = 1000
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:      defaultStateDir,
			LogDir:        defaultLogDir,
			ScreenshotDir: defaultScreenshotDir,
		},
		Capture: Capture{
			Enabled:        false,
			IntervalMillis: defaultCaptureIntervalMs,
			Command:        defaultCaptureCommand,
			Args:           []string{"-window", "root", "png:-"},
			TimeoutSeconds: defaultCaptureTimeout,
		},
		Analysis: Analysis{
			Enabled:        false,
			RequestTimeout: defaultAnalysisTimeout,
		},
		Token: Token{
			Command:        defaultTokenCommand,
			Args:           []string{"auth", "print-identity-token"},
			CacheMinutes:   defaultTokenCacheMinutes,
			TimeoutSeconds: defaultTokenTimeout,
		},
		Pairing: Pairing{
			RequestTimeout: defaultPairingTimeout,
		},
		Connectivity: Connectivity{
			URL:             defaultConnectivityURL,
			IntervalSeconds: defaultConnectivityInterval,
			TimeoutSeconds:  defaultConnectivityTimeout,
		},
		Outbox: Outbox{
			Enabled:              false,
			DrainIntervalSeconds: defaultOutboxDrainInterval,
			BatchSize:            defaultOutboxBatchSize,
			MaxAttempts:          defaultOutboxMaxAttempts,
			BaseBackoffSeconds:   defaultOutboxBaseBackoff,
			MaxBackoffSeconds:    defaultOutboxMaxBackoff,
			SkipWhenOffline:      true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Pairing:        true,
			Connectivity:   true,
			Outbox:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
