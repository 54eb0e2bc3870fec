package connectivity

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"shotclock/internal/config"
	"shotclock/internal/logging"
	"shotclock/internal/services"
)

// Checker probes a well-known URL to decide whether the network is usable.
type Checker struct {
	url     string
	client  services.HTTPDoer
	timeout time.Duration
	logger  *slog.Logger

	mu         sync.Mutex
	wasOffline bool
}

// Option configures a Checker.
type Option func(*Checker)

// WithHTTPClient overrides the HTTP backend.
func WithHTTPClient(client services.HTTPDoer) Option {
	return func(c *Checker) {
		if client != nil {
			c.client = client
		}
	}
}

// NewChecker constructs a Checker for connectivity.url.
func NewChecker(cfg *config.Config, logger *slog.Logger, opts ...Option) *Checker {
	c := &Checker{
		url:     cfg.Connectivity.URL,
		timeout: cfg.ConnectivityTimeout(),
		logger:  logging.NewComponentLogger(logger, "connectivity"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{
			Timeout: c.timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return c
}

// URL returns the probe target.
func (c *Checker) URL() string {
	return c.url
}

// Check issues one GET and reports reachability. Only 2xx counts as
// online; redirects are not followed, so a captive portal reads as offline. It never returns an error; failures simply mean offline.
func (c *Checker) Check(ctx context.Context) bool {
	online, reason := c.probe(ctx)
	c.noteTransition(online, reason)
	return online
}

func (c *Checker) probe(ctx context.Context) (bool, string) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return false, err.Error()
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, err.Error()
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, services.MaxErrorBody))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true, ""
	}
	return false, resp.Status
}

func (c *Checker) noteTransition(online bool, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !online && !c.wasOffline:
		c.wasOffline = true
		logging.WarnWithContext(c.logger, "connectivity lost", "connectivity_lost",
			logging.String("url", c.url),
			logging.String("reason", reason),
			logging.String(logging.FieldErrorHint, "check the network connection or connectivity.url"),
			logging.String(logging.FieldImpact, "uploads will fail and samples are saved locally"),
		)
	case online && c.wasOffline:
		c.wasOffline = false
		c.logger.Info("connectivity restored",
			logging.String("url", c.url),
			logging.String(logging.FieldEventType, "connectivity_restored"),
		)
	}
}
