package token

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shotclock/internal/config"
	"shotclock/internal/logging"
	"shotclock/internal/services"
)

// expiryLeeway keeps a cached token from being sent in its final minute.
const expiryLeeway = time.Minute

// Token is a cached bearer credential.
type Token struct {
	Value   string
	Expires time.Time
}

// Manager obtains identity tokens from an external command and caches them.
type Manager struct {
	command  string
	args     []string
	lifetime time.Duration
	timeout  time.Duration
	exec     services.Executor
	now      func() time.Time
	logger   *slog.Logger

	mu     sync.RWMutex
	cached Token
}

// Option configures a Manager.
type Option func(*Manager)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(m *Manager) {
		if exec != nil {
			m.exec = exec
		}
	}
}

// WithClock overrides the time source used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a Manager from the token section of cfg.
func NewManager(cfg *config.Config, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		command:  cfg.Token.Command,
		args:     append([]string(nil), cfg.Token.Args...),
		lifetime: cfg.TokenCacheLifetime(),
		timeout:  cfg.TokenTimeout(),
		exec:     services.CommandExecutor{},
		now:      time.Now,
		logger:   logging.NewComponentLogger(logger, "token"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns a cached token while it is valid and otherwise runs the
// token command. Failures are tagged services.ErrToken.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.RLock()
	if tok := m.cached; tok.Value != "" && m.now().Before(tok.Expires) {
		m.mu.RUnlock()
		return tok.Value, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if tok := m.cached; tok.Value != "" && m.now().Before(tok.Expires) {
		return tok.Value, nil
	}

	value, err := m.fetch(ctx)
	if err != nil {
		return "", err
	}
	issued := m.now()
	m.cached = Token{Value: value, Expires: expiryFor(value, issued, m.lifetime)}
	m.logger.Debug("identity token refreshed",
		logging.Time("expires", m.cached.Expires),
		logging.String(logging.FieldEventType, "token_refreshed"),
	)
	return value, nil
}

// Invalidate drops the cached token so the next call refreshes it.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.cached = Token{}
	m.mu.Unlock()
}

// Cached returns the current cache entry without refreshing.
func (m *Manager) Cached() Token {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cached
}

func (m *Manager) fetch(ctx context.Context) (string, error) {
	if strings.TrimSpace(m.command) == "" {
		return "", services.Wrap(services.ErrToken, "token", "fetch", "token command not configured", nil)
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	out, err := m.exec.Output(ctx, m.command, m.args)
	if err != nil {
		return "", services.Wrap(services.ErrToken, "token", "fetch", "token command failed", err)
	}
	value := strings.TrimSpace(string(out))
	if value == "" {
		return "", services.Wrap(services.ErrToken, "token", "fetch", "token command printed nothing", nil)
	}
	return value, nil
}

// expiryFor caps the cache lifetime at the JWT exp claim minus a leeway.
// Opaque tokens use the configured lifetime alone.
func expiryFor(value string, issued time.Time, lifetime time.Duration) time.Time {
	expires := issued.Add(lifetime)
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(value, claims); err != nil || claims.ExpiresAt == nil {
		return expires
	}
	if limit := claims.ExpiresAt.Add(-expiryLeeway); limit.Before(expires) {
		return limit
	}
	return expires
}
