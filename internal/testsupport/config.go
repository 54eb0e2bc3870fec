package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"shotclock/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ScreenshotDir = filepath.Join(base, "screenshots")
	cfgVal.Connectivity.URL = "http://127.0.0.1:0/generate_204"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCapture enables screenshots with the given interval.
func WithCapture(intervalMillis int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.Enabled = true
		if intervalMillis > 0 {
			b.cfg.Capture.IntervalMillis = intervalMillis
		}
	}
}

// WithAnalysis enables uploads to ingestURL.
func WithAnalysis(ingestURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Analysis.Enabled = true
		b.cfg.Analysis.IngestURL = ingestURL
	}
}

// WithOutbox enables the durable outbox. Analysis must be enabled separately.
func WithOutbox() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Outbox.Enabled = true
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default capture and token
// commands are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.Capture.Command, b.cfg.Token.Command}
		}
		for _, name := range names {
			writeScript(b.t, b.binDir(), name, "exit 0\n")
		}
		prependPath(b.t, b.binDir())
	}
}

// WithScript writes an executable shell script named name whose body follows
// the shebang line, and prepends its directory to PATH.
func WithScript(name, body string) ConfigOption {
	return func(b *configBuilder) {
		writeScript(b.t, b.binDir(), name, body)
		prependPath(b.t, b.binDir())
	}
}

func (b *configBuilder) binDir() string {
	dir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	return dir
}

func prependPath(t testing.TB, dir string) {
	t.Helper()
	oldPath := os.Getenv("PATH")
	if list := filepath.SplitList(oldPath); len(list) > 0 && list[0] == dir {
		return
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath)
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
