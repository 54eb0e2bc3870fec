package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"shotclock/internal/capture"
	"shotclock/internal/config"
	"shotclock/internal/logging"
	"shotclock/internal/outbox"
	"shotclock/internal/session"
	"shotclock/internal/upload"
)

var (
	// ErrCaptureDisabled is returned by Start when capture.enabled is false.
	ErrCaptureDisabled = errors.New("screenshots are disabled (capture.enabled = false)")
	// ErrNotStarted is returned by Pause, Resume, and Toggle before Start.
	ErrNotStarted = errors.New("capture cycle has not been started")
)

// State is the supervisor lifecycle position.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// Indicator mirrors the tray icon: active while the timer is installed.
type Indicator string

const (
	IndicatorActive Indicator = "active"
	IndicatorIdle   Indicator = "idle"
)

// Capturer produces one sample.
type Capturer interface {
	Capture(ctx context.Context) (capture.Sample, error)
}

// Uploader sends one sample for analysis.
type Uploader interface {
	Upload(ctx context.Context, req upload.Request) (*upload.Response, error)
}

// Persister saves one sample locally.
type Persister interface {
	Persist(sample capture.Sample) (string, error)
}

// Enqueuer queues a locally saved sample for re-delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, entry outbox.Entry) (*outbox.Item, error)
}

// Deps are the collaborators a tick routes samples through.
type Deps struct {
	Capturer  Capturer
	Uploader  Uploader
	Persister Persister
	// Outbox is optional; nil disables queuing after failed uploads.
	Outbox Enqueuer
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithClock overrides the time source and ticker factory.
func WithClock(clock Clock) Option {
	return func(s *Supervisor) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// Supervisor drives the periodic capture cycle.
type Supervisor struct {
	cfg      *config.Config
	session  *session.AgentContext
	deps     Deps
	logger   *slog.Logger
	clock    Clock
	interval time.Duration

	inFlight atomic.Bool
	wg       sync.WaitGroup

	mu         sync.Mutex
	state      State
	ticker     Ticker
	loopDone   chan struct{}
	runCtx     context.Context
	cancel     context.CancelFunc
	epoch      uint64
	blockStart time.Time

	status      string
	lastCapture time.Time
	lastErr     error
	counters    Counters
}

// New constructs a stopped Supervisor.
func New(cfg *config.Config, sess *session.AgentContext, deps Deps, logger *slog.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:      cfg,
		session:  sess,
		deps:     deps,
		logger:   logging.NewComponentLogger(logger, "agent"),
		clock:    systemClock{},
		interval: cfg.CaptureInterval(),
		state:    StateStopped,
		status:   statusNoCaptures,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start installs the capture timer. The first tick fires one full interval
// later. Ticks inherit values from ctx but are cancelled only by Stop.
// Starting a paused supervisor resumes it.
func (s *Supervisor) Start(ctx context.Context) error {
	if !s.cfg.Capture.Enabled {
		return ErrCaptureDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateRunning:
		return nil
	case StateStopped:
		s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	}
	s.runLocked()
	s.logger.Info("capture cycle started",
		logging.String(logging.FieldEventType, "capture_started"),
		logging.Duration("interval", s.interval),
		logging.Bool("analysis", s.cfg.Analysis.Enabled),
	)
	return nil
}

// Stop removes the timer, cancels in-flight work, and waits for it to finish.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.haltLocked()
	s.state = StateStopped
	cancel := s.cancel
	s.cancel = nil
	s.runCtx = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info("capture cycle stopped", logging.String(logging.FieldEventType, "capture_stopped"))
}

// Pause cancels the timer. An in-flight tick is left to finish.
func (s *Supervisor) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateStopped:
		return ErrNotStarted
	case StatePaused:
		return nil
	}
	s.haltLocked()
	s.state = StatePaused
	s.logger.Info("capture paused", logging.String(logging.FieldEventType, "capture_paused"))
	return nil
}

// Resume installs a fresh timer so the next capture is one full interval
// after the resume instant.
func (s *Supervisor) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateStopped:
		return ErrNotStarted
	case StateRunning:
		return nil
	}
	s.runLocked()
	s.logger.Info("capture resumed", logging.String(logging.FieldEventType, "capture_resumed"))
	return nil
}

// Toggle flips between running and paused and returns the new state.
func (s *Supervisor) Toggle() (State, error) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	var err error
	switch state {
	case StateRunning:
		err = s.Pause()
	case StatePaused:
		err = s.Resume()
	default:
		return state, ErrNotStarted
	}
	return s.State(), err
}

// State returns the lifecycle position.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// runLocked installs a ticker and its loop. Caller holds s.mu.
func (s *Supervisor) runLocked() {
	ticker := s.clock.NewTicker(s.interval)
	done := make(chan struct{})
	s.ticker = ticker
	s.loopDone = done
	s.state = StateRunning
	s.epoch++
	s.blockStart = s.clock.Now()

	ctx := s.runCtx
	s.wg.Add(1)
	go s.loop(ctx, ticker, done)
}

// haltLocked removes the current ticker. Caller holds s.mu.
func (s *Supervisor) haltLocked() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.loopDone != nil {
		close(s.loopDone)
		s.loopDone = nil
	}
}

func (s *Supervisor) loop(ctx context.Context, ticker Ticker, done <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C():
			s.fire(ctx, ticker)
		}
	}
}

// fire launches a tick unless one is already in flight.
func (s *Supervisor) fire(ctx context.Context, ticker Ticker) {
	s.mu.Lock()
	if s.ticker != ticker {
		s.mu.Unlock()
		return
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.counters.Skipped++
		s.mu.Unlock()
		s.logger.Debug("capture tick skipped; previous tick still running",
			logging.String(logging.FieldEventType, "tick_skipped"),
		)
		return
	}
	epoch := s.epoch
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)
		s.tick(ctx, epoch)
	}()
}
