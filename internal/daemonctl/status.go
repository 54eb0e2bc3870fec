package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"shotclock/internal/config"
	"shotclock/internal/identity"
	"shotclock/internal/ipc"
	"shotclock/internal/outbox"
	"shotclock/internal/preflight"
)

// StatusLine is one labelled row of status output.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// DependencySummary aggregates dependency readiness.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missing_required"`
	MissingOptional int    `json:"missing_optional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}

// Snapshot is the status view rendered by the CLI. Status is filled from the
// daemon when reachable and from local state otherwise.
type Snapshot struct {
	Status            *ipc.StatusResponse `json:"status"`
	Reachable         bool                `json:"reachable"`
	SystemChecks      []StatusLine        `json:"system_checks"`
	Preflight         []StatusLine        `json:"preflight"`
	DependencySummary DependencySummary   `json:"dependency_summary"`
}

// BuildStatusSnapshot collects daemon status and applies offline fallbacks
// for identity, outbox stats, and dependencies.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*Snapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	snap := &Snapshot{Status: &ipc.StatusResponse{}}

	if client, err := ipc.Dial(socketPath); err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			snap.Status = resp
			snap.Reachable = true
		}
	}

	if !snap.Reachable {
		applyOfflineFallbacks(ctx, cfg, snap.Status)
	}
	if len(snap.Status.Dependencies) == 0 {
		snap.Status.Dependencies = ipc.ConvertDependencies(preflight.CheckSystemDeps(cfg))
	}

	snap.SystemChecks = BuildSystemChecks(cfg, snap.Status)
	snap.Preflight = BuildPreflightLines(ctx, cfg)
	snap.DependencySummary = BuildDependencySummary(snap.Status.Dependencies)
	return snap, nil
}

func applyOfflineFallbacks(ctx context.Context, cfg *config.Config, status *ipc.StatusResponse) {
	status.StateDir = cfg.Paths.StateDir
	status.ScreenshotDir = cfg.Paths.ScreenshotDir
	status.LockPath = cfg.LockPath()
	status.OutboxEnabled = cfg.Outbox.Enabled

	if id, err := identity.NewStore(cfg.IdentityPath()).Load(); err == nil {
		status.DeviceID = id.DeviceID
		status.UserID = id.UserID
		status.PairedAt = id.PairedAt
	}

	if !cfg.Outbox.Enabled {
		return
	}
	// Opening would create the database; only read an existing one.
	if _, err := os.Stat(cfg.OutboxPath()); err != nil {
		return
	}
	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	store, err := outbox.Open(cfg)
	if err != nil {
		status.OutboxError = err.Error()
		return
	}
	defer store.Close()
	status.OutboxPath = store.Path()
	stats, err := store.Stats(queryCtx)
	if err != nil {
		status.OutboxError = err.Error()
		return
	}
	status.OutboxStats = make(map[string]int, len(stats))
	for k, v := range stats {
		status.OutboxStats[string(k)] = v
	}
}

// BuildSystemChecks resolves status lines that combine runtime state and config.
func BuildSystemChecks(cfg *config.Config, status *ipc.StatusResponse) []StatusLine {
	lines := make([]StatusLine, 0, 6)
	if status.Running {
		lines = append(lines, StatusLine{Label: "Shotclock", Severity: "ok", Detail: fmt.Sprintf("Running (pid %d)", status.PID)})
	} else {
		lines = append(lines, StatusLine{Label: "Shotclock", Severity: "warn", Detail: "Not running (run `shotclock start`)"})
	}

	switch {
	case !cfg.Capture.Enabled:
		lines = append(lines, StatusLine{Label: "Capture", Severity: "info", Detail: "Disabled (capture.enabled = false)"})
	case !status.Running:
		lines = append(lines, StatusLine{Label: "Capture", Severity: "info", Detail: "Inactive (daemon not running)"})
	case status.Agent.State == "running":
		lines = append(lines, StatusLine{Label: "Capture", Severity: "ok", Detail: fmt.Sprintf("Active every %s", status.Agent.Interval)})
	case status.Agent.State == "paused":
		lines = append(lines, StatusLine{Label: "Capture", Severity: "warn", Detail: "Paused (run `shotclock resume`)"})
	default:
		lines = append(lines, StatusLine{Label: "Capture", Severity: "warn", Detail: "Stopped (run `shotclock start`)"})
	}

	switch {
	case !cfg.Analysis.Enabled:
		lines = append(lines, StatusLine{Label: "Analysis", Severity: "info", Detail: "Off (screenshots kept locally)"})
	case strings.TrimSpace(status.UserID) != "":
		lines = append(lines, StatusLine{Label: "Analysis", Severity: "ok", Detail: "Paired as " + status.UserID})
	default:
		lines = append(lines, StatusLine{Label: "Analysis", Severity: "warn", Detail: "Not paired (run `shotclock pair <code>`)"})
	}

	conn := status.Connectivity
	switch {
	case !status.Running || !conn.Known:
		lines = append(lines, StatusLine{Label: "Connectivity", Severity: "info", Detail: "Unknown"})
	case conn.Online:
		lines = append(lines, StatusLine{Label: "Connectivity", Severity: "ok", Detail: "Online"})
	default:
		lines = append(lines, StatusLine{Label: "Connectivity", Severity: "warn", Detail: "Offline (" + conn.URL + ")"})
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		lines = append(lines, StatusLine{Label: "Notifications", Severity: "ok", Detail: "Configured"})
	} else {
		lines = append(lines, StatusLine{Label: "Notifications", Severity: "warn", Detail: "Not configured"})
	}

	switch {
	case !cfg.Outbox.Enabled:
		lines = append(lines, StatusLine{Label: "Outbox", Severity: "info", Detail: "Disabled"})
	case status.OutboxError != "":
		lines = append(lines, StatusLine{Label: "Outbox", Severity: "error", Detail: status.OutboxError})
	case status.OutboxStats[string(outbox.StatusFailed)] > 0:
		lines = append(lines, StatusLine{Label: "Outbox", Severity: "warn", Detail: fmt.Sprintf("%d pending, %d failed (run `shotclock outbox retry`)",
			status.OutboxStats[string(outbox.StatusPending)], status.OutboxStats[string(outbox.StatusFailed)])})
	default:
		lines = append(lines, StatusLine{Label: "Outbox", Severity: "ok", Detail: fmt.Sprintf("%d pending", status.OutboxStats[string(outbox.StatusPending)])})
	}
	return lines
}

// BuildPreflightLines runs the directory and endpoint checks.
func BuildPreflightLines(ctx context.Context, cfg *config.Config) []StatusLine {
	results := preflight.RunAll(ctx, cfg, false)
	lines := make([]StatusLine, 0, len(results))
	for _, result := range results {
		severity := "error"
		if result.Passed {
			severity = "ok"
		}
		lines = append(lines, StatusLine{Label: result.Name, Severity: severity, Detail: result.Detail})
	}
	return lines
}

// BuildDependencySummary computes aggregate dependency readiness.
func BuildDependencySummary(deps []ipc.DependencyStatus) DependencySummary {
	if len(deps) == 0 {
		return DependencySummary{
			Severity: "info",
			Detail:   "No dependency checks configured",
		}
	}

	missingRequired := 0
	missingOptional := 0
	for _, dep := range deps {
		if dep.Available {
			continue
		}
		if dep.Optional {
			missingOptional++
		} else {
			missingRequired++
		}
	}

	missingCount := missingRequired + missingOptional
	available := len(deps) - missingCount
	severity := "ok"
	if missingRequired > 0 {
		severity = "error"
	} else if missingOptional > 0 {
		severity = "warn"
	}
	detail := fmt.Sprintf("%d/%d available (missing: %d required, %d optional)", available, len(deps), missingRequired, missingOptional)
	if missingCount == 0 {
		detail = fmt.Sprintf("%d/%d available", available, len(deps))
	}

	return DependencySummary{
		Total:           len(deps),
		Available:       available,
		MissingRequired: missingRequired,
		MissingOptional: missingOptional,
		Severity:        severity,
		Detail:          detail,
	}
}
