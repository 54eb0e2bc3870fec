package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"shotclock/internal/config"
	"shotclock/internal/daemon"
	"shotclock/internal/deps"
	"shotclock/internal/ipc"
	"shotclock/internal/logging"
	"shotclock/internal/preflight"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Diagnostic  bool
}

// Run starts the shotclock daemon and blocks until a signal or a Shutdown
// request arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, stopSignals := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	runCtx, shutdown := context.WithCancel(signalCtx)
	defer shutdown()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("shotclock-%s.log", runID))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if opts.Diagnostic {
		logger = attachDiagnosticLogger(logger, cfg, runID)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update shotclock.log link: %v\n", err)
	}
	logDependencySnapshot(logger, cfg)
	logPreflight(runCtx, logger, cfg)

	d, err := daemon.Build(cfg, logger, logPath)
	if err != nil {
		logger.Error("build daemon", logging.Error(err))
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(runCtx); err != nil {
		// A second instance must not take over the socket of the first.
		return fmt.Errorf("start daemon: %w", err)
	}
	if err := writePIDFile(cfg.PIDPath()); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(cfg.PIDPath())

	ipcServer, err := ipc.NewServer(runCtx, cfg.SocketPath(), d, logger, ipc.WithShutdown(shutdown))
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	logger.Info("shotclock daemon ready",
		logging.String("socket", cfg.SocketPath()),
		logging.String("log_path", logPath),
		logging.String(logging.FieldEventType, "daemon_ready"),
	)

	<-runCtx.Done()
	logger.Info("shotclock daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func attachDiagnosticLogger(logger *slog.Logger, cfg *config.Config, runID string) *slog.Logger {
	sessionID := uuid.NewString()
	debugDir := filepath.Join(cfg.Paths.LogDir, "debug")
	if err := os.MkdirAll(debugDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to create debug log directory: %v\n", err)
		return logger
	}
	debugLogPath := filepath.Join(debugDir, fmt.Sprintf("shotclock-%s.log", runID))
	debugLogger, err := logging.New(logging.Options{
		Level:            "debug",
		Format:           "json",
		OutputPaths:      []string{debugLogPath},
		ErrorOutputPaths: []string{debugLogPath},
		Development:      true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize debug logger: %v\n", err)
		return logger
	}
	logger = logging.TeeLogger(logger, debugLogger.Handler())
	if err := ensureCurrentLogPointer(debugDir, debugLogPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update debug/shotclock.log link: %v\n", err)
	}
	logger = logger.With(logging.String(logging.FieldCorrelationID, sessionID))
	logger.Info("diagnostic mode enabled",
		logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
		logging.String("debug_log_path", debugLogPath),
	)
	return logger
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "shotclock.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	statuses := preflight.CheckSystemDeps(cfg)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("capture_enabled", cfg.Capture.Enabled),
		logging.Bool("analysis_enabled", cfg.Analysis.Enabled),
		logging.Bool("outbox_enabled", cfg.Outbox.Enabled),
	}
	for _, status := range statuses {
		attrs = append(attrs,
			logging.Bool(filepath.Base(status.Command)+"_available", status.Available),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)

	for _, missing := range deps.Missing(statuses) {
		logging.WarnWithContext(logger, "required command missing", "dependency_missing",
			logging.String("name", missing.Name),
			logging.String("command", missing.Command),
			logging.String(logging.FieldErrorHint, "install the command or update the config"),
			logging.String(logging.FieldImpact, "captures or uploads will fail until resolved"),
		)
	}
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg, false)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run shotclock status for details"),
		)
	}
}
