package agent

import (
	"time"

	"shotclock/internal/services"
)

// Counters tally tick outcomes since the daemon started.
type Counters struct {
	Uploaded int `json:"uploaded"`
	Saved    int `json:"saved"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

// Snapshot is a point-in-time view of the supervisor.
type Snapshot struct {
	State         State         `json:"state"`
	Indicator     Indicator     `json:"indicator"`
	Status        string        `json:"status"`
	Interval      time.Duration `json:"interval"`
	Analysis      bool          `json:"analysis"`
	Paired        bool          `json:"paired"`
	LastCapture   time.Time     `json:"last_capture,omitzero"`
	LastError     string        `json:"last_error,omitempty"`
	LastErrorKind string        `json:"last_error_kind,omitempty"`
	InFlight      bool          `json:"in_flight"`
	Counters      Counters      `json:"counters"`
}

// Snapshot reports state, status line, and counters.
func (s *Supervisor) Snapshot() Snapshot {
	paired := s.session != nil && s.session.UserID() != ""
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:       s.state,
		Indicator:   IndicatorIdle,
		Status:      s.status,
		Interval:    s.interval,
		Analysis:    s.cfg.Analysis.Enabled,
		Paired:      paired,
		LastCapture: s.lastCapture,
		InFlight:    s.inFlight.Load(),
		Counters:    s.counters,
	}
	if s.state == StateRunning {
		snap.Indicator = IndicatorActive
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
		snap.LastErrorKind = services.Kind(s.lastErr)
	}
	return snap
}
