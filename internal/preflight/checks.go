package preflight

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"shotclock/internal/config"
	"shotclock/internal/connectivity"
	"shotclock/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCreatableDirectory passes for an accessible directory, or for a missing
// one whose nearest existing ancestor is writable.
func CheckCreatableDirectory(name, path string) Result {
	if _, err := os.Stat(path); err == nil || !errors.Is(err, os.ErrNotExist) {
		return CheckDirectoryAccess(name, path)
	}
	parent := filepath.Dir(path)
	for {
		if _, err := os.Stat(parent); err == nil {
			break
		}
		next := filepath.Dir(parent)
		if next == parent {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent)", path)}
		}
		parent = next
	}
	if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first save)", path)}
}

// CheckEndpoint validates a configured http(s) URL. An empty value fails only
// when required.
func CheckEndpoint(name, raw string, required bool) Result {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			return Result{Name: name, Detail: "not configured"}
		}
		return Result{Name: name, Passed: true, Detail: "not configured (unused)"}
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url (%v)", err)}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Result{Name: name, Detail: fmt.Sprintf("unsupported scheme %q", parsed.Scheme)}
	}
	if parsed.Host == "" {
		return Result{Name: name, Detail: "missing host"}
	}
	return Result{Name: name, Passed: true, Detail: parsed.Scheme + "://" + parsed.Host}
}

// CheckConnectivity runs one reachability probe.
func CheckConnectivity(ctx context.Context, cfg *config.Config) Result {
	const name = "Connectivity"
	checker := connectivity.NewChecker(cfg, nil)
	if checker.Check(ctx) {
		return Result{Name: name, Passed: true, Detail: checker.URL() + " reachable"}
	}
	return Result{Name: name, Detail: checker.URL() + " unreachable"}
}

// CheckSystemDeps evaluates the external commands for the given config.
// Both the daemon and the CLI status command use this list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "Capture command",
			Command:     cfg.Capture.Command,
			Description: "Writes a PNG screenshot to stdout",
			Optional:    !cfg.Capture.Enabled,
		},
	}
	if strings.TrimSpace(cfg.Capture.ListCommand) != "" {
		requirements = append(requirements, deps.Requirement{
			Name:        "Display list command",
			Command:     cfg.Capture.ListCommand,
			Description: "Enumerates displays before capture",
			Optional:    !cfg.Capture.Enabled,
		})
	}
	requirements = append(requirements, deps.Requirement{
		Name:        "Token command",
		Command:     cfg.Token.Command,
		Description: "Issues the bearer token for uploads",
		Optional:    !cfg.Analysis.Enabled,
	})
	return deps.CheckBinaries(requirements)
}
