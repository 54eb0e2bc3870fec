package daemon

import (
	"fmt"
	"log/slog"

	"shotclock/internal/agent"
	"shotclock/internal/capture"
	"shotclock/internal/config"
	"shotclock/internal/connectivity"
	"shotclock/internal/identity"
	"shotclock/internal/notifications"
	"shotclock/internal/outbox"
	"shotclock/internal/pairing"
	"shotclock/internal/persist"
	"shotclock/internal/session"
	"shotclock/internal/token"
	"shotclock/internal/upload"
)

// Build constructs every component from cfg and returns a stopped daemon.
func Build(cfg *config.Config, logger *slog.Logger, logPath string) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	sess, err := session.New(cfg, identity.NewStore(cfg.IdentityPath()))
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}

	notifier := notifications.NewService(cfg)
	tokens := token.NewManager(cfg, logger)
	uploader := upload.New(cfg, tokens, logger)
	persister := persist.New(cfg, logger)
	checker := connectivity.NewChecker(cfg, logger)
	monitor := connectivity.NewMonitor(checker, cfg.ConnectivityInterval(), notifier, logger)

	comp := Components{
		Session:   sess,
		Monitor:   monitor,
		Persister: persister,
		Notifier:  notifier,
	}
	agentDeps := agent.Deps{
		Capturer:  capture.New(cfg, logger),
		Uploader:  uploader,
		Persister: persister,
	}
	if cfg.Outbox.Enabled {
		store, err := outbox.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open outbox: %w", err)
		}
		comp.Outbox = store
		comp.Drainer = outbox.NewDrainer(cfg, store, uploader, logger,
			outbox.WithOnline(monitor.Online),
			outbox.WithNotifier(notifier),
		)
		agentDeps.Outbox = store
	}

	comp.Supervisor = agent.New(cfg, sess, agentDeps, logger)
	comp.Pairer = agent.NewPairer(pairing.NewClient(cfg, logger), sess, comp.Supervisor, notifier, logger)

	d, err := New(cfg, logger, comp, logPath)
	if err != nil {
		if comp.Outbox != nil {
			_ = comp.Outbox.Close()
		}
		return nil, err
	}
	return d, nil
}
