package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"shotclock/internal/config"
	"shotclock/internal/services"
)

// DefaultDisplay names the single source used when no list command is set.
const DefaultDisplay = "default"

const displayPlaceholder = "{display}"

// Source enumerates screens and grabs one as PNG bytes.
type Source interface {
	Displays(ctx context.Context) ([]string, error)
	Grab(ctx context.Context, display string) ([]byte, error)
}

// CommandSource shells out to configured tools for enumeration and capture.
type CommandSource struct {
	command     string
	args        []string
	listCommand string
	listArgs    []string
	exec        services.Executor
}

// NewCommandSource builds a CommandSource from capture settings. A nil
// executor runs real processes.
func NewCommandSource(cfg config.Capture, exec services.Executor) *CommandSource {
	if exec == nil {
		exec = services.CommandExecutor{}
	}
	return &CommandSource{
		command:     cfg.Command,
		args:        append([]string(nil), cfg.Args...),
		listCommand: cfg.ListCommand,
		listArgs:    append([]string(nil), cfg.ListArgs...),
		exec:        exec,
	}
}

// Displays runs the list command, or reports DefaultDisplay when none is set.
func (s *CommandSource) Displays(ctx context.Context) ([]string, error) {
	if strings.TrimSpace(s.listCommand) == "" {
		return []string{DefaultDisplay}, nil
	}
	out, err := s.exec.Output(ctx, s.listCommand, s.listArgs)
	if err != nil {
		return nil, fmt.Errorf("list displays: %w", err)
	}
	return parseDisplays(out), nil
}

// Grab runs the capture command for display and returns its stdout.
func (s *CommandSource) Grab(ctx context.Context, display string) ([]byte, error) {
	if strings.TrimSpace(s.command) == "" {
		return nil, fmt.Errorf("capture command not configured")
	}
	args := make([]string, len(s.args))
	for i, arg := range s.args {
		args[i] = strings.ReplaceAll(arg, displayPlaceholder, display)
	}
	return s.exec.Output(ctx, s.command, args)
}

// parseDisplays reads one display per line and keeps the last field, which
// matches "xrandr --listmonitors" and plain name-per-line output alike.
func parseDisplays(out []byte) []string {
	var displays []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "Monitors:") {
			continue
		}
		fields := strings.Fields(line)
		displays = append(displays, fields[len(fields)-1])
	}
	return displays
}
