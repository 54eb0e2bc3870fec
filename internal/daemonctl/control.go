package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"shotclock/internal/config"
	"shotclock/internal/ipc"
)

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
	Diagnostic bool
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
	StartStateRequested      StartState = "start_requested"
)

// StartResult describes what EnsureStarted did.
type StartResult struct {
	State    StartState
	Launched bool
	Message  string
}

// StopResult describes how the daemon went away.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// RestartResult combines the stop and start halves of a restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// ErrDaemonNotRunning indicates the control socket is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

const defaultPollInterval = 200 * time.Millisecond

// Controller drives a daemon process through its control socket, falling
// back to the PID file when the socket stops answering.
type Controller struct {
	socket   string
	pidPath  string
	lockPath string
	poll     time.Duration
}

// NewController targets the daemon listening on socket. cfg supplies the PID
// and lock paths and may be nil when only the socket is known.
func NewController(socket string, cfg *config.Config) *Controller {
	c := &Controller{socket: socket, poll: defaultPollInterval}
	if cfg != nil {
		c.pidPath = cfg.PIDPath()
		c.lockPath = cfg.LockPath()
	}
	return c
}

// Launch starts a detached daemon process in its own session.
func (c *Controller) Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return errors.New("resolve executable: executable path is empty")
	}
	proc := exec.Command(executablePath, launchArgs(opts)...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

func launchArgs(opts LaunchOptions) []string {
	args := []string{"daemon"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}
	if opts.Diagnostic {
		args = append(args, "--diagnostic")
	}
	return args
}

// WaitForClient polls until the socket accepts a connection.
func (c *Controller) WaitForClient(timeout time.Duration) (*ipc.Client, error) {
	var client *ipc.Client
	var lastErr error
	ok := c.pollUntil(timeout, func() bool {
		client, lastErr = ipc.Dial(c.socket)
		return lastErr == nil
	})
	if ok {
		return client, nil
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// WaitForShutdown polls until the socket refuses connections.
func (c *Controller) WaitForShutdown(timeout time.Duration) error {
	ok := c.pollUntil(timeout, func() bool {
		client, err := ipc.Dial(c.socket)
		if err != nil {
			return isDaemonUnavailable(err)
		}
		_ = client.Close()
		return false
	})
	if !ok {
		return fmt.Errorf("daemon did not stop within %s", timeout)
	}
	return nil
}

// pollUntil calls done until it reports true or timeout elapses. done runs at
// least once.
func (c *Controller) pollUntil(timeout time.Duration, done func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if done() {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(c.poll)
	}
}

// EnsureStarted launches the daemon when the socket is down, then asks it to
// run the capture cycle.
func (c *Controller) EnsureStarted(executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	launched := false
	client, err := ipc.Dial(c.socket)
	if err != nil {
		if err := c.Launch(executablePath, opts); err != nil {
			return StartResult{}, err
		}
		if client, err = c.WaitForClient(waitTimeout); err != nil {
			return StartResult{}, err
		}
		launched = true
	}
	defer client.Close()

	wasRunning := false
	if status, statusErr := client.Status(); statusErr == nil && status != nil {
		wasRunning = status.Agent.State == "running"
	}

	resp, err := client.Start()
	if err != nil {
		return StartResult{}, err
	}
	result := StartResult{Launched: launched, Message: strings.TrimSpace(resp.Message)}
	switch {
	case resp.Started && wasRunning && !launched:
		result.State = StartStateAlreadyRunning
	case resp.Started:
		result.State = StartStateStarted
	default:
		result.State = StartStateRequested
		if result.Message == "" {
			result.Message = "Start request sent"
		}
	}
	return result, nil
}

// ProcessInfo reports whether the socket answers and the PID it reports.
func (c *Controller) ProcessInfo() (bool, int, error) {
	client, err := ipc.Dial(c.socket)
	if err != nil {
		if isDaemonUnavailable(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()
	status, err := client.Status()
	if err != nil {
		return true, 0, err
	}
	return true, status.PID, nil
}

// Stop sends Shutdown and, if the socket still answers after gracePeriod,
// kills the process named by the PID file.
func (c *Controller) Stop(gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(c.socket)
	if err != nil {
		if isDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	var result StopResult
	if status, statusErr := client.Status(); statusErr == nil && status != nil {
		result.PID = status.PID
	}
	resp, err := client.Shutdown()
	_ = client.Close()
	if err != nil {
		return StopResult{}, err
	}
	result.StopAcknowledged = resp.Acknowledged

	_ = c.WaitForShutdown(gracePeriod)
	alive, livePID, infoErr := c.ProcessInfo()
	if infoErr != nil || !alive {
		return result, nil
	}
	if livePID == 0 {
		livePID = result.PID
	}
	killed, err := ForceKill(c.pidPath, c.lockPath, livePID)
	if err != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", err)
	}
	_ = os.Remove(c.socket)
	result.ForcedKill = true
	result.PID = killed
	return result, nil
}

// Restart stops the daemon if it is running, then starts it again.
func (c *Controller) Restart(executablePath string, opts LaunchOptions, stopGrace, startWait time.Duration) (RestartResult, error) {
	stopped, stopErr := c.Stop(stopGrace)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}
	started, err := c.EnsureStarted(executablePath, opts, startWait)
	if err != nil {
		return RestartResult{}, err
	}
	return RestartResult{WasRunning: stopErr == nil, Stop: stopped, Start: started}, nil
}

// ForceKill sends SIGKILL to the PID recorded in pidPath, or fallbackPID when
// the file is absent, and removes the PID and lock files.
func ForceKill(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid, err := readPID(pidPath)
	if err != nil {
		return 0, err
	}
	if pid <= 0 {
		pid = fallbackPID
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if pidPath != "" {
		if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
		}
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

// readPID returns 0 for a missing or unparsable PID file.
func readPID(path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read daemon pid file %q: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, nil
	}
	return pid, nil
}

func isDaemonUnavailable(err error) bool {
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
