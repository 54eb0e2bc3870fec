package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sort"
	"sync"

	"shotclock/internal/daemon"
	"shotclock/internal/deps"
	"shotclock/internal/logging"
	"shotclock/internal/outbox"
	"shotclock/internal/services"
)

// ServiceName is the JSON-RPC receiver name.
const ServiceName = "Shotclock"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*service)

// WithShutdown installs the callback run by the Shutdown RPC.
func WithShutdown(fn func()) ServerOption {
	return func(s *service) {
		s.shutdown = fn
	}
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, opts ...ServerOption) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	srv := &service{daemon: d, logger: logger, ctx: serverCtx}
	for _, opt := range opts {
		opt(srv)
	}
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Go(func() {
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"),
				)
				continue
			}
			s.wg.Go(func() {
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
			})
		}
	})
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun shotclock stop"),
		)
	}
}

type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.logger.Debug("capture start requested")
	err := s.daemon.StartCapture(s.ctx)
	resp.State = string(s.daemon.Status(s.ctx).Agent.State)
	if err != nil {
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "capture started"
	s.logger.Info("capture started via IPC", logging.String(logging.FieldEventType, "capture_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("capture stop requested")
	s.daemon.StopCapture()
	resp.Stopped = true
	s.logger.Info("capture stopped via IPC", logging.String(logging.FieldEventType, "capture_stop"))
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	if s.shutdown == nil {
		return errors.New("shutdown not supported by this server")
	}
	s.logger.Info("daemon shutdown requested via IPC", logging.String(logging.FieldEventType, "daemon_shutdown"))
	resp.Acknowledged = true
	// Reply before the listener closes.
	go s.shutdown()
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.StartedAt = status.StartedAt
	resp.DeviceID = status.DeviceID
	resp.UserID = status.UserID
	resp.PairedAt = status.PairedAt
	resp.Agent = status.Agent
	resp.Connectivity = ConnectivityStatus{
		Known:     status.Connectivity.Known,
		Online:    status.Connectivity.Online,
		URL:       status.ConnectivityURL,
		CheckedAt: status.Connectivity.CheckedAt,
		Since:     status.Connectivity.Since,
	}
	resp.OutboxEnabled = status.OutboxEnabled
	resp.OutboxError = status.OutboxError
	resp.OutboxPath = status.OutboxPath
	if len(status.OutboxStats) > 0 {
		resp.OutboxStats = make(map[string]int, len(status.OutboxStats))
		for k, v := range status.OutboxStats {
			resp.OutboxStats[string(k)] = v
		}
	}
	resp.Dependencies = ConvertDependencies(status.Dependencies)
	resp.StateDir = status.StateDir
	resp.ScreenshotDir = status.ScreenshotDir
	resp.LockPath = status.LockPath
	resp.LogPath = status.LogPath
	return nil
}

func (s *service) Pause(_ StateRequest, resp *StateResponse) error {
	s.transition(resp, "paused", s.daemon.Pause)
	return nil
}

func (s *service) Resume(_ StateRequest, resp *StateResponse) error {
	s.transition(resp, "resumed", s.daemon.Resume)
	return nil
}

func (s *service) Toggle(_ StateRequest, resp *StateResponse) error {
	s.transition(resp, "toggled", func() error {
		_, err := s.daemon.Toggle()
		return err
	})
	return nil
}

func (s *service) transition(resp *StateResponse, verb string, fn func() error) {
	err := fn()
	resp.State = string(s.daemon.Status(s.ctx).Agent.State)
	if err != nil {
		resp.Error = err.Error()
		return
	}
	resp.Message = "capture " + verb
	s.logger.Info("capture "+verb+" via IPC",
		logging.String("state", resp.State),
		logging.String(logging.FieldEventType, "capture_"+verb),
	)
}

func (s *service) Pair(req PairRequest, resp *PairResponse) error {
	if req.Reset {
		if err := s.daemon.Unpair(); err != nil {
			resp.Error = err.Error()
			resp.ErrorKind = services.Kind(err)
			return nil
		}
		resp.Reset = true
		return nil
	}
	result, err := s.daemon.Pair(s.ctx, req.Code)
	if err != nil {
		resp.Error = err.Error()
		resp.ErrorKind = services.Kind(err)
		return nil
	}
	resp.Paired = true
	resp.UserID = result.UserID
	resp.Started = result.Started
	return nil
}

func (s *service) OutboxList(req OutboxListRequest, resp *OutboxListResponse) error {
	statuses := make([]outbox.Status, 0, len(req.Statuses))
	for _, raw := range req.Statuses {
		parsed, ok := outbox.ParseStatus(raw)
		if !ok {
			return fmt.Errorf("unknown outbox status %q", raw)
		}
		statuses = append(statuses, parsed)
	}
	items, err := s.daemon.OutboxList(s.ctx, statuses...)
	if err != nil {
		resp.Error = err.Error()
		return nil
	}
	resp.Items = make([]OutboxItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		resp.Items = append(resp.Items, convertOutboxItem(item))
	}
	return nil
}

func (s *service) OutboxRetry(req OutboxRetryRequest, resp *OutboxRetryResponse) error {
	for _, id := range req.IDs {
		if id <= 0 {
			return fmt.Errorf("invalid outbox item id %d", id)
		}
	}
	updated, err := s.daemon.OutboxRetry(s.ctx, req.IDs...)
	if err != nil {
		resp.Error = err.Error()
		return nil
	}
	resp.Updated = updated
	s.logger.Info("outbox items retried",
		logging.Int64("updated_count", updated),
		logging.String(logging.FieldEventType, "outbox_retry"),
	)
	return nil
}

func (s *service) OutboxPurge(_ OutboxPurgeRequest, resp *OutboxPurgeResponse) error {
	removed, err := s.daemon.OutboxPurge(s.ctx)
	if err != nil {
		resp.Error = err.Error()
		return nil
	}
	resp.Removed = removed
	s.logger.Info("outbox delivered items purged",
		logging.Int64("removed_count", removed),
		logging.String(logging.FieldEventType, "outbox_purge"),
	)
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	if err != nil {
		resp.Message = message + ": " + err.Error()
	}
	return nil
}

func convertOutboxItem(item *outbox.Item) OutboxItem {
	return OutboxItem{
		ID:            item.ID,
		Path:          item.Path,
		Digest:        item.Digest,
		UserID:        item.UserID,
		StartTime:     item.StartTime,
		EndTime:       item.EndTime,
		Status:        string(item.Status),
		Attempts:      item.Attempts,
		NextAttemptAt: item.NextAttemptAt,
		LastError:     item.LastError,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
}

// ConvertDependencies maps dependency checks to wire form with a severity.
// Required dependencies sort first.
func ConvertDependencies(checks []deps.Status) []DependencyStatus {
	if len(checks) == 0 {
		return nil
	}
	out := make([]DependencyStatus, 0, len(checks))
	for _, check := range checks {
		severity := "ok"
		if !check.Available {
			severity = "error"
			if check.Optional {
				severity = "warn"
			}
		}
		out = append(out, DependencyStatus{
			Name:        check.Name,
			Command:     check.Command,
			Description: check.Description,
			Optional:    check.Optional,
			Available:   check.Available,
			Path:        check.Path,
			Detail:      check.Detail,
			Severity:    severity,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return !out[i].Optional && out[j].Optional
	})
	return out
}
