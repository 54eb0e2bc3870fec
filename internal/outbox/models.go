package outbox

import (
	"errors"
	"time"
)

// Status is the delivery state of an outbox item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// ErrItemNotFound is returned when a transition targets an unknown id.
var ErrItemNotFound = errors.New("outbox item not found")

// ParseStatus returns the Status named by value.
func ParseStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusPending, StatusDelivered, StatusFailed:
		return Status(value), true
	default:
		return "", false
	}
}

// Entry describes a locally saved sample to enqueue.
type Entry struct {
	Path      string
	Digest    string
	UserID    string
	StartTime time.Time
	EndTime   time.Time
}

// Item is a persisted outbox row.
type Item struct {
	ID            int64
	Path          string
	Digest        string
	UserID        string
	StartTime     time.Time
	EndTime       time.Time
	Status        Status
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DatabaseHealth describes the outbox database for diagnostics.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	TotalItems       int
	IntegrityCheck   bool
	Error            string
}
