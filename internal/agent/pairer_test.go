package agent_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"shotclock/internal/agent"
	"shotclock/internal/identity"
	"shotclock/internal/notifications"
	"shotclock/internal/pairing"
	"shotclock/internal/services"
)

type recordingNotifier struct {
	events []notifications.Event
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.events = append(r.events, event)
	return nil
}

func TestPairSuccessBindsAndStarts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"SUCCESS","data":{"user_id":"U"}}`))
	}))
	defer server.Close()

	h := newHarness(t, "")
	h.cfg.Pairing.URL = server.URL
	notifier := &recordingNotifier{}
	pairer := agent.NewPairer(pairing.NewClient(h.cfg, nil), h.session, h.supervisor, notifier, nil)

	result, err := pairer.Pair(context.Background(), "123456")
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	if result.UserID != "U" || !result.Started {
		t.Fatalf("unexpected result: %+v", result)
	}
	if h.session.UserID() != "U" {
		t.Fatalf("expected session bound to U, got %q", h.session.UserID())
	}
	if h.supervisor.State() != agent.StateRunning {
		t.Fatalf("expected supervisor running, got %s", h.supervisor.State())
	}
	stored, err := identity.NewStore(h.cfg.IdentityPath()).Load()
	if err != nil || stored.UserID != "U" || !stored.Paired() {
		t.Fatalf("expected binding persisted, got %+v, %v", stored, err)
	}
	if len(notifier.events) != 1 || notifier.events[0] != notifications.EventPaired {
		t.Fatalf("expected paired notification, got %v", notifier.events)
	}
}

func TestPairResumesPausedSupervisor(t *testing.T) {
	h := newHarness(t, "")
	if err := h.supervisor.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.supervisor.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	pairer := agent.NewPairer(&stubPairingClient{userID: "U"}, h.session, h.supervisor, nil, nil)
	result, err := pairer.Pair(context.Background(), "123456")
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	if !result.Started || h.supervisor.State() != agent.StateRunning {
		t.Fatalf("expected paused supervisor resumed, result=%+v state=%s", result, h.supervisor.State())
	}
	if snap := h.supervisor.Snapshot(); snap.Indicator != agent.IndicatorActive {
		t.Fatalf("expected active indicator after pairing, got %s", snap.Indicator)
	}

	// Pairing again while running leaves the cycle as is.
	again, err := pairer.Pair(context.Background(), "654321")
	if err != nil {
		t.Fatalf("second Pair: %v", err)
	}
	if again.Started || h.supervisor.State() != agent.StateRunning {
		t.Fatalf("expected running supervisor untouched, result=%+v state=%s", again, h.supervisor.State())
	}
}

func TestPairWithCaptureDisabledDoesNotStart(t *testing.T) {
	h := newHarness(t, "")
	h.cfg.Capture.Enabled = false
	pairer := agent.NewPairer(&stubPairingClient{userID: "U"}, h.session, h.supervisor, nil, nil)
	result, err := pairer.Pair(context.Background(), "123456")
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	if result.Started || h.session.UserID() != "U" || h.supervisor.State() != agent.StateStopped {
		t.Fatalf("expected bound but stopped, result=%+v state=%s", result, h.supervisor.State())
	}
}

func TestPairFailureChangesNothing(t *testing.T) {
	tests := []struct {
		name   string
		client agent.PairingClient
	}{
		{
			name:   "rejected",
			client: &stubPairingClient{err: services.Wrap(services.ErrPairing, "pairing", "pair", "code rejected: INVALID_CODE", nil)},
		},
		{
			name:   "transport",
			client: &stubPairingClient{err: services.Wrap(services.ErrPairing, "pairing", "pair", "request failed", errors.New("connection refused"))},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "previous")
			notifier := &recordingNotifier{}
			pairer := agent.NewPairer(tt.client, h.session, h.supervisor, notifier, nil)

			_, err := pairer.Pair(context.Background(), "000000")
			if !errors.Is(err, services.ErrPairing) {
				t.Fatalf("expected ErrPairing, got %v", err)
			}
			if h.session.UserID() != "previous" {
				t.Fatalf("expected user id unchanged, got %q", h.session.UserID())
			}
			if h.supervisor.State() != agent.StateStopped {
				t.Fatalf("expected supervisor not started, got %s", h.supervisor.State())
			}
			if len(notifier.events) != 1 || notifier.events[0] != notifications.EventPairingFailed {
				t.Fatalf("expected pairing failed notification, got %v", notifier.events)
			}
		})
	}
}
