package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"shotclock/internal/logging"
	"shotclock/internal/notifications"
)

// State is the last observed reachability.
type State struct {
	Known     bool
	Online    bool
	CheckedAt time.Time
	// Since is when the current Online value was first observed.
	Since time.Time
}

// Monitor polls a Checker on an interval and remembers the result.
type Monitor struct {
	checker  *Checker
	interval time.Duration
	notifier notifications.Service
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.RWMutex
	state State
}

// NewMonitor wraps checker with a polling loop.
func NewMonitor(checker *Checker, interval time.Duration, notifier notifications.Service, logger *slog.Logger) *Monitor {
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Monitor{
		checker:  checker,
		interval: interval,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "connectivity"),
		now:      time.Now,
	}
}

// Run probes immediately and then every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.Probe(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

// Probe runs one check, records it, and publishes transitions.
func (m *Monitor) Probe(ctx context.Context) bool {
	online := m.checker.Check(ctx)
	now := m.now()

	m.mu.Lock()
	prev := m.state
	m.state.CheckedAt = now
	if !prev.Known || prev.Online != online {
		m.state.Since = now
	}
	m.state.Known = true
	m.state.Online = online
	m.mu.Unlock()

	if ctx.Err() != nil {
		return online
	}
	switch {
	case !online && (!prev.Known || prev.Online):
		m.publish(ctx, notifications.EventConnectivityLost, notifications.Payload{"url": m.checker.URL()})
	case online && prev.Known && !prev.Online:
		m.publish(ctx, notifications.EventConnectivityRestored, notifications.Payload{
			"downtime": now.Sub(prev.Since).Round(time.Second).String(),
		})
	}
	return online
}

func (m *Monitor) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		m.logger.Debug("connectivity notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}

// State returns the last recorded observation.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Online reports the last observation, treating "never checked" as online.
func (m *Monitor) Online() bool {
	s := m.State()
	return !s.Known || s.Online
}
