package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"shotclock/internal/daemonctl"
	"shotclock/internal/ipc"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 18
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	text := "[" + statusKindLabel(kind) + "]"
	if message != "" {
		text += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", text)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + line + ansiReset
		}
	}
	return line
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ansiBlue
	}
}

func severityKind(severity string) statusKind {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "ok":
		return statusOK
	case "warn":
		return statusWarn
	case "error":
		return statusError
	default:
		return statusInfo
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderStatus formats the full status snapshot for terminal output.
func renderStatus(snap *daemonctl.Snapshot, now time.Time, colorize bool) string {
	var lines []string
	status := snap.Status

	lines = append(lines, renderSectionHeader("System Status", colorize)...)
	for _, check := range snap.SystemChecks {
		lines = append(lines, renderStatusLine(check.Label, severityKind(check.Severity), check.Detail, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Agent", colorize)...)
	lines = append(lines, agentLines(status, now, colorize)...)

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Preflight", colorize)...)
	for _, check := range snap.Preflight {
		lines = append(lines, renderStatusLine(check.Label, severityKind(check.Severity), check.Detail, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	lines = append(lines, dependencyLines(status.Dependencies, snap.DependencySummary, colorize)...)

	lines = append(lines, "")
	lines = append(lines, renderTable(
		[]string{"Uploaded", "Saved", "Failed", "Skipped"},
		[][]string{{
			strconv.Itoa(status.Agent.Counters.Uploaded),
			strconv.Itoa(status.Agent.Counters.Saved),
			strconv.Itoa(status.Agent.Counters.Failed),
			strconv.Itoa(status.Agent.Counters.Skipped),
		}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
	))
	return strings.Join(lines, "\n") + "\n"
}

func agentLines(status *ipc.StatusResponse, now time.Time, colorize bool) []string {
	var lines []string
	if status.DeviceID != "" {
		lines = append(lines, renderStatusLine("Device", statusInfo, status.DeviceID, colorize))
	}
	if status.UserID != "" {
		paired := status.UserID
		if !status.PairedAt.IsZero() {
			paired += " (" + humanize.RelTime(status.PairedAt, now, "ago", "from now") + ")"
		}
		lines = append(lines, renderStatusLine("Paired", statusOK, paired, colorize))
	}
	if !status.StartedAt.IsZero() {
		lines = append(lines, renderStatusLine("Started", statusInfo, humanize.RelTime(status.StartedAt, now, "ago", "from now"), colorize))
	}
	if status.Agent.Status != "" {
		lines = append(lines, renderStatusLine("Status", statusInfo, status.Agent.Status, colorize))
	}
	if !status.Agent.LastCapture.IsZero() {
		lines = append(lines, renderStatusLine("Last capture", statusInfo, humanize.RelTime(status.Agent.LastCapture, now, "ago", "from now"), colorize))
	}
	if status.Agent.LastError != "" {
		message := status.Agent.LastError
		if status.Agent.LastErrorKind != "" {
			message = status.Agent.LastErrorKind + ": " + message
		}
		lines = append(lines, renderStatusLine("Last error", statusError, message, colorize))
	}
	if status.ScreenshotDir != "" {
		lines = append(lines, renderStatusLine("Screenshots", statusInfo, status.ScreenshotDir, colorize))
	}
	if status.LogPath != "" {
		lines = append(lines, renderStatusLine("Log", statusInfo, status.LogPath, colorize))
	}
	if len(lines) == 0 {
		lines = append(lines, renderStatusLine("Agent", statusInfo, "No runtime data", colorize))
	}
	return lines
}

func dependencyLines(deps []ipc.DependencyStatus, summary daemonctl.DependencySummary, colorize bool) []string {
	lines := []string{renderStatusLine("Summary", severityKind(summary.Severity), summary.Detail, colorize)}
	var missing []string
	for _, dep := range deps {
		var message string
		switch {
		case dep.Available && dep.Command != "":
			message = fmt.Sprintf("Ready (command: %s)", dep.Command)
		case dep.Available:
			message = "Ready"
		case strings.TrimSpace(dep.Detail) != "":
			message = strings.TrimSpace(dep.Detail)
		default:
			message = "not available"
		}
		lines = append(lines, renderStatusLine(dep.Name, severityKind(dep.Severity), message, colorize))
		if !dep.Available && !dep.Optional {
			missing = append(missing, dep.Name)
		}
	}
	if len(missing) > 0 {
		lines = append(lines, statusIndent+"Missing dependencies: "+strings.Join(missing, ", "))
	}
	return lines
}
