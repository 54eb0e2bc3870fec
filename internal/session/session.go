package session

import (
	"errors"
	"strings"
	"sync"

	"shotclock/internal/config"
	"shotclock/internal/identity"
)

// AgentContext carries the process-wide agent state: loaded configuration,
// the device identity, and the currently bound user. It is passed explicitly
// to every component that needs it.
type AgentContext struct {
	cfg   *config.Config
	store *identity.Store

	mu       sync.RWMutex
	identity identity.Identity
}

// New loads (or creates) the device identity and returns a context seeded
// with any previously persisted user binding.
func New(cfg *config.Config, store *identity.Store) (*AgentContext, error) {
	if cfg == nil {
		return nil, errors.New("session: config is required")
	}
	if store == nil {
		store = identity.NewStore(cfg.IdentityPath())
	}
	id, err := store.Ensure()
	if err != nil {
		return nil, err
	}
	return &AgentContext{cfg: cfg, store: store, identity: id}, nil
}

// Config returns the loaded configuration.
func (c *AgentContext) Config() *config.Config {
	return c.cfg
}

// DeviceID returns the stable device identifier.
func (c *AgentContext) DeviceID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity.DeviceID
}

// UserID returns the bound user, or "" when the device is not paired.
func (c *AgentContext) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity.UserID
}

// Identity returns a copy of the current identity record.
func (c *AgentContext) Identity() identity.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

// BindUser persists userID and makes it the current binding. The in-memory
// value only changes when the write succeeds.
func (c *AgentContext) BindUser(userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("session: user id is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id, err := c.store.Bind(userID)
	if err != nil {
		return err
	}
	c.identity = id
	return nil
}

// ClearUser removes the binding on disk and in memory.
func (c *AgentContext) ClearUser() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, err := c.store.Unbind()
	if err != nil {
		return err
	}
	c.identity = id
	return nil
}
