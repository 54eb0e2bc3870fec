package main

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"shotclock/internal/agent"
	"shotclock/internal/daemonctl"
	"shotclock/internal/ipc"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Shotclock", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Shotclock:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Shotclock", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	deps := []ipc.DependencyStatus{
		{Name: "Capture command", Command: "grim", Severity: "error"},
		{Name: "Token command", Command: "shotclock-token", Available: true, Severity: "ok"},
		{Name: "Display list", Optional: true, Detail: "not configured", Severity: "warn"},
	}
	lines := dependencyLines(deps, daemonctl.BuildDependencySummary(deps), false)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %q", len(lines), lines)
	}
	checks := []string{"[ERROR] 1/3 available", "[ERROR] not available", "[OK] Ready (command: shotclock-token)", "[WARN] not configured", "Missing dependencies: Capture command"}
	for i, want := range checks {
		if !strings.Contains(lines[i], want) {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want)
		}
	}
}

func TestAgentLinesHumanizeTimes(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	status := &ipc.StatusResponse{
		DeviceID:  "dev-1",
		UserID:    "user-1",
		PairedAt:  now.Add(-2 * time.Hour),
		StartedAt: now.Add(-10 * time.Minute),
		Agent: ipc.AgentStatus{
			State:         agent.StateRunning,
			Status:        "Uploaded at 11:59",
			LastCapture:   now.Add(-30 * time.Second),
			LastError:     "exit status 1",
			LastErrorKind: "capture",
		},
	}
	joined := strings.Join(agentLines(status, now, false), "\n")
	for _, want := range []string{"user-1 (2 hours ago)", "10 minutes ago", "30 seconds ago", "capture: exit status 1", "Uploaded at 11:59"} {
		requireContains(t, joined, want)
	}
}

func TestRenderOutboxTable(t *testing.T) {
	now := time.Now()
	out := renderOutboxTable([]ipc.OutboxItem{
		{ID: 4, Path: "/nonexistent/shot.png", Status: "pending", Attempts: 2, NextAttemptAt: now.Add(5 * time.Minute)},
	}, now)
	for _, want := range []string{"shot.png", "missing", "from now", "Next attempt"} {
		requireContains(t, out, want)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate short = %q", got)
	}
	if got := truncate(strings.Repeat("x", 20), 10); len([]rune(got)) != 10 || !strings.HasSuffix(got, "…") {
		t.Fatalf("truncate long = %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatal("expected non-file writer to disable color")
	}
}
