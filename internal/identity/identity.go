package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Identity is the persisted device record. UserID is empty until pairing
// succeeds.
type Identity struct {
	DeviceID  string    `json:"device_id"`
	Hostname  string    `json:"hostname"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id,omitempty"`
	PairedAt  time.Time `json:"paired_at,omitzero"`
}

// Paired reports whether a user is bound to the device.
func (i Identity) Paired() bool {
	return strings.TrimSpace(i.UserID) != ""
}

// Store writes identity state to a JSON file on disk.
type Store struct {
	path     string
	mu       sync.Mutex
	now      func() time.Time
	hostname func() (string, error)
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source used for CreatedAt and PairedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithHostname overrides hostname lookup.
func WithHostname(fn func() (string, error)) Option {
	return func(s *Store) {
		if fn != nil {
			s.hostname = fn
		}
	}
}

// NewStore builds a Store rooted at the provided path.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{path: path, now: time.Now, hostname: os.Hostname}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the identity file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads identity state from disk. A missing file resolves to an empty
// identity.
func (s *Store) Load() (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (Identity, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Identity{}, nil
		}
		return Identity{}, fmt.Errorf("read identity: %w", err)
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return Identity{}, fmt.Errorf("decode identity %s: %w", s.path, err)
	}
	return id, nil
}

// Save persists identity state with restricted permissions.
func (s *Store) Save(id Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(id)
}

func (s *Store) save(id Identity) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure identity directory: %w", err)
	}
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace identity: %w", err)
	}
	return nil
}

// Ensure loads the identity, generating and saving a device id when none
// exists yet. An existing device id is never replaced.
func (s *Store) Ensure() (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.load()
	if err != nil {
		return Identity{}, err
	}
	if strings.TrimSpace(id.DeviceID) != "" {
		return id, nil
	}
	host, err := s.hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		host = "device"
	}
	id.Hostname = host
	id.DeviceID = NewDeviceID(host)
	id.CreatedAt = s.now().UTC()
	if err := s.save(id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Bind records userID as the paired account.
func (s *Store) Bind(userID string) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.load()
	if err != nil {
		return Identity{}, err
	}
	id.UserID = strings.TrimSpace(userID)
	id.PairedAt = s.now().UTC()
	if err := s.save(id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Unbind clears the paired account while keeping the device id.
func (s *Store) Unbind() (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.load()
	if err != nil {
		return Identity{}, err
	}
	id.UserID = ""
	id.PairedAt = time.Time{}
	if err := s.save(id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// NewDeviceID derives a device id from the host name and a random UUID.
func NewDeviceID(hostname string) string {
	return sanitizeHostname(hostname) + "-" + uuid.NewString()
}

func sanitizeHostname(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if idx := strings.IndexByte(host, '.'); idx > 0 {
		host = host[:idx]
	}
	var b strings.Builder
	for _, r := range host {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "device"
	}
	if len(out) > 32 {
		out = out[:32]
	}
	return out
}
