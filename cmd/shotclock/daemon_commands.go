package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shotclock/internal/daemonctl"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startDiagnostic bool
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon and the capture cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := ctx.controller().EnsureStarted(exe, daemonLaunchOptions(ctx, startDiagnostic), 10*time.Second)
			if err != nil {
				return err
			}
			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}
			printStartResult(stdout, result, "Capture started")
			return nil
		},
	}
	startCmd.Flags().BoolVar(&startDiagnostic, "diagnostic", false, "Enable diagnostic mode with separate DEBUG logs")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon process",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := ctx.controller().Stop(5 * time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var restartDiagnostic bool
	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := ctx.controller().Restart(exe, daemonLaunchOptions(ctx, restartDiagnostic), 5*time.Second, 10*time.Second)
			if err != nil {
				return err
			}
			if result.WasRunning {
				if result.Stop.ForcedKill && result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			printStartResult(stdout, result.Start, "Daemon restarted")
			return nil
		},
	}
	restartCmd.Flags().BoolVar(&restartDiagnostic, "diagnostic", false, "Enable diagnostic mode with separate DEBUG logs")

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show agent, connectivity, and outbox status",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), ctx.configValue())
			if err != nil {
				return err
			}
			if statusJSON {
				return writeJSON(cmd, snap)
			}
			stdout := cmd.OutOrStdout()
			fmt.Fprint(stdout, renderStatus(snap, time.Now(), shouldColorize(stdout)))
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func printStartResult(stdout io.Writer, result daemonctl.StartResult, startedMessage string) {
	switch result.State {
	case daemonctl.StartStateStarted:
		fmt.Fprintln(stdout, startedMessage)
	case daemonctl.StartStateAlreadyRunning:
		fmt.Fprintln(stdout, "Capture already running")
	case daemonctl.StartStateRequested:
		if msg := strings.TrimSpace(result.Message); msg != "" {
			fmt.Fprintln(stdout, msg)
			return
		}
		fmt.Fprintln(stdout, "Start request sent")
	}
}

func daemonLaunchOptions(ctx *commandContext, diagnostic bool) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{
		ConfigPath: ctx.configPath(),
		Diagnostic: diagnostic,
	}
	if ctx.logLevel != nil {
		opts.LogLevel = strings.TrimSpace(*ctx.logLevel)
	}
	if opts.ConfigPath != "" {
		if abs, err := filepath.Abs(opts.ConfigPath); err == nil {
			opts.ConfigPath = abs
		}
	}
	return opts
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}
