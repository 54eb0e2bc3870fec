package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shotclock/internal/config"
	"shotclock/internal/daemon"
	"shotclock/internal/ipc"
	"shotclock/internal/logging"
)

type cliEnv struct {
	cfg        *config.Config
	configPath string
	socketPath string
}

// writeTestConfig writes a TOML config rooted in a temp dir. extra is appended
// verbatim so tests can add sections.
func writeTestConfig(t *testing.T, extra string) (string, *config.Config) {
	t.Helper()
	base := t.TempDir()
	var buf strings.Builder
	fmt.Fprintf(&buf, "[paths]\nstate_dir = %q\nlog_dir = %q\nscreenshot_dir = %q\n\n",
		filepath.Join(base, "state"), filepath.Join(base, "logs"), filepath.Join(base, "screenshots"))
	buf.WriteString("[connectivity]\nurl = \"http://127.0.0.1:0/generate_204\"\n\n")
	buf.WriteString(extra)

	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return path, cfg
}

// startTestDaemon runs a daemon and IPC server in-process for the config.
func startTestDaemon(t *testing.T, extra string) *cliEnv {
	t.Helper()
	path, cfg := writeTestConfig(t, extra)

	logger := logging.NewNop()
	d, err := daemon.Build(cfg, logger, "")
	if err != nil {
		t.Fatalf("daemon.Build: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon Start: %v", err)
	}

	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
	time.Sleep(50 * time.Millisecond)

	return &cliEnv{cfg: cfg, configPath: path, socketPath: cfg.SocketPath()}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Fatalf("expected output to contain %q\n--- output ---\n%s", want, got)
	}
}
