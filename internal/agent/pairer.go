package agent

import (
	"context"
	"errors"
	"log/slog"

	"shotclock/internal/logging"
	"shotclock/internal/notifications"
	"shotclock/internal/services"
	"shotclock/internal/session"
)

// PairingClient exchanges a pairing code for a user id.
type PairingClient interface {
	Pair(ctx context.Context, code, deviceID string) (string, error)
}

// PairResult describes a successful pairing.
type PairResult struct {
	UserID  string
	Started bool
}

// Pairer binds this device to an account.
type Pairer struct {
	client     PairingClient
	session    *session.AgentContext
	supervisor *Supervisor
	notifier   notifications.Service
	logger     *slog.Logger
}

// NewPairer wires a pairing client to the session and supervisor. A nil
// notifier disables pairing notifications.
func NewPairer(client PairingClient, sess *session.AgentContext, supervisor *Supervisor, notifier notifications.Service, logger *slog.Logger) *Pairer {
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Pairer{
		client:     client,
		session:    sess,
		supervisor: supervisor,
		notifier:   notifier,
		logger:     logging.NewComponentLogger(logger, "pairing"),
	}
}

// Pair submits code once. On success the user id is bound and persisted and
// a supervisor that is not running (stopped or paused) is started when
// capture is enabled. On failure nothing changes.
func (p *Pairer) Pair(ctx context.Context, code string) (PairResult, error) {
	userID, err := p.client.Pair(ctx, code, p.session.DeviceID())
	if err != nil {
		logging.WarnWithContext(p.logger, "pairing failed", "pairing_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "request a new code from the dashboard and try again"),
			logging.String(logging.FieldImpact, "device remains unpaired"),
		)
		p.publish(ctx, notifications.EventPairingFailed, notifications.Payload{"error": err.Error()})
		return PairResult{}, err
	}

	if err := p.session.BindUser(userID); err != nil {
		return PairResult{}, services.Wrap(services.ErrPairing, "pairing", "bind", "persist binding", err)
	}
	p.logger.Info("device paired",
		logging.String(logging.FieldEventType, "device_paired"),
		logging.String("user_id", userID),
		logging.String("device_id", p.session.DeviceID()),
	)
	p.publish(ctx, notifications.EventPaired, notifications.Payload{"userId": userID})

	result := PairResult{UserID: userID}
	if p.supervisor != nil && p.supervisor.State() != StateRunning {
		switch err := p.supervisor.Start(ctx); {
		case err == nil:
			result.Started = true
		case errors.Is(err, ErrCaptureDisabled):
			p.logger.Info("capture not started after pairing; screenshots disabled",
				logging.String(logging.FieldEventType, "capture_disabled"),
			)
		default:
			return result, err
		}
	}
	return result, nil
}

func (p *Pairer) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := p.notifier.Publish(ctx, event, payload); err != nil {
		p.logger.Debug("pairing notification failed", logging.Error(err))
	}
}
