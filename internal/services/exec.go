package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Output(ctx context.Context, binary string, args []string) ([]byte, error)
}

// CommandExecutor runs real processes via os/exec.
type CommandExecutor struct{}

const (
	stderrTailBytes = 512
	// waitDelay caps how long output copying may outlive a killed process
	// whose children still hold the pipes.
	waitDelay = 500 * time.Millisecond
)

// Output runs binary and returns its stdout. A non-zero exit includes the
// tail of stderr in the error.
func (CommandExecutor) Output(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", binary, errors.Join(ErrTimeout, ctxErr))
		}
		tail := strings.TrimSpace(stderr.String())
		if len(tail) > stderrTailBytes {
			tail = tail[len(tail)-stderrTailBytes:]
		}
		if tail != "" {
			return nil, fmt.Errorf("%s: %w: %s", binary, err, tail)
		}
		return nil, fmt.Errorf("%s: %w", binary, err)
	}
	return stdout.Bytes(), nil
}
