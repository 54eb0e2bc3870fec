package ipc

import (
	"time"

	"shotclock/internal/agent"
)

// StartRequest starts or resumes the capture cycle.
type StartRequest struct{}

// StartResponse indicates whether the capture cycle is running.
type StartResponse struct {
	Started bool   `json:"started"`
	State   string `json:"state"`
	Message string `json:"message"`
}

// StopRequest removes the capture timer. The daemon keeps running.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges a shutdown request.
type ShutdownResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// AgentStatus is the supervisor snapshot as sent over the wire.
type AgentStatus = agent.Snapshot

// DependencyStatus describes availability of an external command.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Path        string `json:"path,omitempty"`
	Detail      string `json:"detail,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// ConnectivityStatus is the last reachability observation.
type ConnectivityStatus struct {
	Known     bool      `json:"known"`
	Online    bool      `json:"online"`
	URL       string    `json:"url"`
	CheckedAt time.Time `json:"checked_at,omitzero"`
	Since     time.Time `json:"since,omitzero"`
}

// StatusResponse represents combined daemon and capture status.
type StatusResponse struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	StartedAt     time.Time          `json:"started_at,omitzero"`
	DeviceID      string             `json:"device_id"`
	UserID        string             `json:"user_id,omitempty"`
	PairedAt      time.Time          `json:"paired_at,omitzero"`
	Agent         AgentStatus        `json:"agent"`
	Connectivity  ConnectivityStatus `json:"connectivity"`
	OutboxEnabled bool               `json:"outbox_enabled"`
	OutboxStats   map[string]int     `json:"outbox_stats,omitempty"`
	OutboxError   string             `json:"outbox_error,omitempty"`
	Dependencies  []DependencyStatus `json:"dependencies"`
	StateDir      string             `json:"state_dir"`
	ScreenshotDir string             `json:"screenshot_dir"`
	LockPath      string             `json:"lock_path"`
	LogPath       string             `json:"log_path"`
	OutboxPath    string             `json:"outbox_path,omitempty"`
}

// StateRequest is shared by Pause, Resume, and Toggle.
type StateRequest struct{}

// StateResponse reports the capture state after a transition.
type StateResponse struct {
	State   string `json:"state"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// PairRequest submits a pairing code. Reset clears the binding instead.
type PairRequest struct {
	Code  string `json:"code"`
	Reset bool   `json:"reset"`
}

// PairResponse reports the pairing outcome.
type PairResponse struct {
	Paired    bool   `json:"paired"`
	Reset     bool   `json:"reset"`
	UserID    string `json:"user_id,omitempty"`
	Started   bool   `json:"started"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// OutboxItem is the wire form of a queued sample.
type OutboxItem struct {
	ID            int64     `json:"id"`
	Path          string    `json:"path"`
	Digest        string    `json:"digest"`
	UserID        string    `json:"user_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	Attempts      int       `json:"attempts"`
	NextAttemptAt time.Time `json:"next_attempt_at,omitzero"`
	LastError     string    `json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OutboxListRequest filters outbox listing by status.
type OutboxListRequest struct {
	Statuses []string `json:"statuses"`
}

// OutboxListResponse contains outbox entries.
type OutboxListResponse struct {
	Items []OutboxItem `json:"items"`
	Error string       `json:"error,omitempty"`
}

// OutboxRetryRequest resets failed items. No ids means every failed item.
type OutboxRetryRequest struct {
	IDs []int64 `json:"ids"`
}

// OutboxRetryResponse reports how many items were reset.
type OutboxRetryResponse struct {
	Updated int64  `json:"updated"`
	Error   string `json:"error,omitempty"`
}

// OutboxPurgeRequest removes delivered items.
type OutboxPurgeRequest struct{}

// OutboxPurgeResponse reports how many items were removed.
type OutboxPurgeResponse struct {
	Removed int64  `json:"removed"`
	Error   string `json:"error,omitempty"`
}

// TestNotificationRequest triggers a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification result.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
