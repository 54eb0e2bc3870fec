package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shotclock/internal/config"
	"shotclock/internal/logging"
	"shotclock/internal/services"
)

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug disabled at default info level")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{path}, ErrorOutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "agent")
	logger.Info("sample uploaded",
		logging.String(logging.FieldTickID, "0123456789abcdef"),
		logging.String(logging.FieldEventType, "sample_uploaded"),
		logging.String("path", "/tmp/a.png"),
	)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "INFO [agent] tick 01234567 - sample uploaded") {
		t.Fatalf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "    - path: /tmp/a.png") {
		t.Fatalf("expected path field: %q", out)
	}
	if strings.Contains(out, "event_type") {
		t.Fatalf("expected event_type hidden at info level: %q", out)
	}
	if strings.Contains(out, ".go:") {
		t.Fatalf("expected no source location at info level: %q", out)
	}
}

func TestConsoleLoggerDebugIncludesSourceAndMachineFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{path}, ErrorOutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("probe", logging.String(logging.FieldEventType, "probe"))

	data, _ := os.ReadFile(path)
	out := string(data)
	if !strings.Contains(out, "logger_test.go:") {
		t.Fatalf("expected source location: %q", out)
	}
	if !strings.Contains(out, "event_type: probe") {
		t.Fatalf("expected event_type at debug level: %q", out)
	}
}

func TestJSONLoggerRenamesStandardKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{path}, ErrorOutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("connectivity lost", logging.String("url", "https://example.com"))

	data, _ := os.ReadFile(path)
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
		t.Fatalf("decode json line %q: %v", data, err)
	}
	if entry["level"] != "warn" || entry["msg"] != "connectivity lost" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	ts, ok := entry["ts"].(string)
	if !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
	if _, err := time.Parse(time.RFC3339Nano, ts); err != nil {
		t.Fatalf("ts not RFC3339: %q", ts)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{path}, ErrorOutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "upload failed", "upload_failed",
		logging.String(logging.FieldImpact, "sample kept locally"),
		logging.ErrorKind(services.Wrap(services.ErrUpload, "upload", "post", "rejected", errors.New("boom"))),
	)

	data, _ := os.ReadFile(path)
	out := string(data)
	for _, want := range []string{`"event_type":"upload_failed"`, `"error_hint":"check logs for details"`, `"impact":"sample kept locally"`, `"error_kind":"upload"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}

func TestWithContextAddsTickID(t *testing.T) {
	ctx := services.WithTickID(context.Background(), "tick-1")
	ctx = services.WithRequestID(ctx, "req-9")
	fields := logging.ContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %v", fields)
	}
	if fields[0].Key != logging.FieldTickID || fields[0].Value.String() != "tick-1" {
		t.Fatalf("unexpected first field %v", fields[0])
	}
	if logging.WithContext(context.Background(), nil) == nil {
		t.Fatal("expected nop logger for nil input")
	}
}
