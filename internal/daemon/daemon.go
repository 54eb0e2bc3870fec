package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"shotclock/internal/agent"
	"shotclock/internal/config"
	"shotclock/internal/connectivity"
	"shotclock/internal/deps"
	"shotclock/internal/logging"
	"shotclock/internal/notifications"
	"shotclock/internal/outbox"
	"shotclock/internal/persist"
	"shotclock/internal/preflight"
	"shotclock/internal/session"
)

const retentionInterval = time.Hour

// ErrOutboxDisabled is returned by outbox operations when outbox.enabled is false.
var ErrOutboxDisabled = errors.New("outbox is disabled (outbox.enabled = false)")

// Components are the collaborators a Daemon coordinates. Outbox and Drainer
// are nil when the outbox is disabled.
type Components struct {
	Session    *session.AgentContext
	Supervisor *agent.Supervisor
	Pairer     *agent.Pairer
	Monitor    *connectivity.Monitor
	Persister  *persist.Persister
	Outbox     *outbox.Store
	Drainer    *outbox.Drainer
	Notifier   notifications.Service
}

// Daemon hosts the capture pipeline and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	logPath string
	comp    Components

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startedAt time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running         bool
	PID             int
	StartedAt       time.Time
	DeviceID        string
	UserID          string
	PairedAt        time.Time
	Agent           agent.Snapshot
	Connectivity    connectivity.State
	ConnectivityURL string
	OutboxEnabled   bool
	OutboxStats     map[outbox.Status]int
	OutboxError     string
	Dependencies    []deps.Status
	StateDir        string
	ScreenshotDir   string
	LockPath        string
	LogPath         string
	OutboxPath      string
}

// New constructs a daemon around already built components.
func New(cfg *config.Config, logger *slog.Logger, comp Components, logPath string) (*Daemon, error) {
	if cfg == nil || comp.Session == nil || comp.Supervisor == nil || comp.Pairer == nil || comp.Monitor == nil || comp.Persister == nil {
		return nil, errors.New("daemon requires config, session, supervisor, pairer, monitor, and persister")
	}
	if (comp.Outbox == nil) != (comp.Drainer == nil) {
		return nil, errors.New("daemon requires outbox store and drainer together")
	}
	if comp.Notifier == nil {
		comp.Notifier = notifications.NewService(nil)
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		logPath:  logPath,
		comp:     comp,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, starts the capture cycle when enabled, and
// launches the connectivity, outbox, and retention loops.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another shotclock daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.startedAt = time.Now()

	switch err := d.comp.Supervisor.Start(d.ctx); {
	case errors.Is(err, agent.ErrCaptureDisabled):
		d.logger.Info("capture disabled; waiting for start request",
			logging.String(logging.FieldEventType, "capture_disabled"),
		)
	case err != nil:
		logging.WarnWithContext(d.logger, "capture start failed", "capture_start_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no screenshots will be taken until started"),
		)
	}

	d.spawn(d.comp.Monitor.Run)
	if d.comp.Drainer != nil {
		d.spawn(d.comp.Drainer.Run)
	}
	d.spawn(d.retentionLoop)

	d.running.Store(true)
	d.logger.Info("shotclock daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

func (d *Daemon) spawn(fn func(context.Context)) {
	ctx := d.ctx
	d.wg.Go(func() { fn(ctx) })
}

// Stop halts all loops and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.comp.Supervisor.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file manually if the next start fails"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("shotclock daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and releases the outbox database.
func (d *Daemon) Close() error {
	d.Stop()
	if d.comp.Outbox != nil {
		return d.comp.Outbox.Close()
	}
	return nil
}

func (d *Daemon) retentionLoop(ctx context.Context) {
	d.prune(ctx)
	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.prune(ctx)
		}
	}
}

// prune removes expired screenshots, never touching files the outbox still
// needs, and expired run logs other than the current one.
func (d *Daemon) prune(ctx context.Context) {
	var keep []string
	if d.comp.Outbox != nil {
		paths, err := d.comp.Outbox.PendingPaths(ctx)
		if err != nil {
			logging.WarnWithContext(d.logger, "screenshot retention skipped", "retention_skipped",
				logging.Error(err),
				logging.String(logging.FieldImpact, "old screenshots kept until the next pass"),
			)
			return
		}
		keep = paths
	}
	d.comp.Persister.Prune(d.cfg.Capture.RetentionDays, keep...)

	var exclude []string
	if d.logPath != "" {
		exclude = append(exclude, d.logPath)
	}
	logging.CleanupOldLogs(d.logger, d.cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: d.cfg.Paths.LogDir, Pattern: "shotclock-*.log", Exclude: exclude},
		logging.RetentionTarget{Dir: filepath.Join(d.cfg.Paths.LogDir, "debug"), Pattern: "shotclock-*.log", Exclude: exclude},
	)
}

// StartCapture installs the capture timer, resuming it when paused.
func (d *Daemon) StartCapture(ctx context.Context) error {
	if !d.running.Load() {
		return errors.New("daemon not running")
	}
	d.mu.Lock()
	runCtx := d.ctx
	d.mu.Unlock()
	if runCtx == nil {
		runCtx = ctx
	}
	return d.comp.Supervisor.Start(runCtx)
}

// StopCapture removes the capture timer and waits for an in-flight tick.
func (d *Daemon) StopCapture() {
	d.comp.Supervisor.Stop()
}

// Pause suspends the capture cycle.
func (d *Daemon) Pause() error {
	return d.comp.Supervisor.Pause()
}

// Resume restarts a paused capture cycle with a full interval.
func (d *Daemon) Resume() error {
	return d.comp.Supervisor.Resume()
}

// Toggle flips between running and paused.
func (d *Daemon) Toggle() (agent.State, error) {
	return d.comp.Supervisor.Toggle()
}

// Pair exchanges code for a user binding.
func (d *Daemon) Pair(ctx context.Context, code string) (agent.PairResult, error) {
	if strings.TrimSpace(code) == "" {
		return agent.PairResult{}, errors.New("pairing code is required")
	}
	return d.comp.Pairer.Pair(ctx, code)
}

// Unpair clears the persisted user binding. Subsequent ticks save locally.
func (d *Daemon) Unpair() error {
	if err := d.comp.Session.ClearUser(); err != nil {
		return err
	}
	d.logger.Info("device unpaired", logging.String(logging.FieldEventType, "device_unpaired"))
	return nil
}

// OutboxList returns outbox items filtered by optional statuses.
func (d *Daemon) OutboxList(ctx context.Context, statuses ...outbox.Status) ([]*outbox.Item, error) {
	if d.comp.Outbox == nil {
		return nil, ErrOutboxDisabled
	}
	return d.comp.Outbox.List(ctx, statuses...)
}

// OutboxRetry moves failed items back to pending. No ids means every failed item.
func (d *Daemon) OutboxRetry(ctx context.Context, ids ...int64) (int64, error) {
	if d.comp.Outbox == nil {
		return 0, ErrOutboxDisabled
	}
	return d.comp.Outbox.RetryFailed(ctx, ids...)
}

// OutboxPurge removes delivered items.
func (d *Daemon) OutboxPurge(ctx context.Context) (int64, error) {
	if d.comp.Outbox == nil {
		return 0, ErrOutboxDisabled
	}
	return d.comp.Outbox.PurgeDelivered(ctx)
}

// OutboxHealth reports diagnostics for the outbox database.
func (d *Daemon) OutboxHealth(ctx context.Context) (outbox.DatabaseHealth, error) {
	if d.comp.Outbox == nil {
		return outbox.DatabaseHealth{}, ErrOutboxDisabled
	}
	return d.comp.Outbox.CheckHealth(ctx)
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.comp.Notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the current run log.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	id := d.comp.Session.Identity()
	status := Status{
		Running:         d.running.Load(),
		PID:             os.Getpid(),
		DeviceID:        id.DeviceID,
		UserID:          id.UserID,
		PairedAt:        id.PairedAt,
		Agent:           d.comp.Supervisor.Snapshot(),
		Connectivity:    d.comp.Monitor.State(),
		ConnectivityURL: d.cfg.Connectivity.URL,
		OutboxEnabled:   d.comp.Outbox != nil,
		Dependencies:    preflight.CheckSystemDeps(d.cfg),
		StateDir:        d.cfg.Paths.StateDir,
		ScreenshotDir:   d.comp.Persister.Dir(),
		LockPath:        d.lockPath,
		LogPath:         d.logPath,
	}
	d.mu.Lock()
	status.StartedAt = d.startedAt
	d.mu.Unlock()

	if d.comp.Outbox != nil {
		status.OutboxPath = d.comp.Outbox.Path()
		stats, err := d.comp.Outbox.Stats(ctx)
		if err != nil {
			status.OutboxError = err.Error()
		} else {
			status.OutboxStats = stats
		}
	}
	return status
}
