package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"shotclock/internal/config"
)

const userAgent = "shotclock/0.1"

// Event names a notification kind.
type Event string

const (
	EventPaired               Event = "paired"
	EventPairingFailed        Event = "pairing_failed"
	EventConnectivityLost     Event = "connectivity_lost"
	EventConnectivityRestored Event = "connectivity_restored"
	EventOutboxItemFailed     Event = "outbox_item_failed"
	EventTest                 Event = "test"
)

// Payload carries event-specific values keyed by name.
type Payload map[string]any

// Service publishes agent events to the user.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return noopService{}
	}
	return &ntfyService{
		endpoint: strings.TrimSpace(cfg.Notifications.NtfyTopic),
		client:   &http.Client{Timeout: cfg.NotificationTimeout()},
		enabled: map[Event]bool{
			EventPaired:               cfg.Notifications.Pairing,
			EventPairingFailed:        cfg.Notifications.Pairing,
			EventConnectivityLost:     cfg.Notifications.Connectivity,
			EventConnectivityRestored: cfg.Notifications.Connectivity,
			EventOutboxItemFailed:     cfg.Notifications.Outbox,
			EventTest:                 true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventPaired:
		return message{
			title: "shotclock - Paired",
			body:  fmt.Sprintf("Device paired with account %s", payload.text("userId", "unknown")),
			tags:  []string{"shotclock", "pairing", "success"},
		}, true
	case EventPairingFailed:
		return message{
			title:    "shotclock - Pairing Failed",
			body:     fmt.Sprintf("Pairing failed: %s", payload.text("error", "unknown error")),
			tags:     []string{"shotclock", "pairing", "warning"},
			priority: "high",
		}, true
	case EventConnectivityLost:
		return message{
			title: "shotclock - Offline",
			body:  fmt.Sprintf("Connectivity lost (%s). Samples will be saved locally.", payload.text("url", "probe")),
			tags:  []string{"shotclock", "connectivity", "offline"},
		}, true
	case EventConnectivityRestored:
		body := "Connectivity restored"
		if downtime := payload.text("downtime", ""); downtime != "" {
			body += " after " + downtime
		}
		return message{
			title: "shotclock - Online",
			body:  body,
			tags:  []string{"shotclock", "connectivity", "online"},
		}, true
	case EventOutboxItemFailed:
		return message{
			title: "shotclock - Upload Abandoned",
			body: fmt.Sprintf("Gave up uploading %s after %s attempts: %s",
				payload.text("path", "sample"), payload.text("attempts", "?"), payload.text("error", "unknown error")),
			tags:     []string{"shotclock", "outbox", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "shotclock - Test",
			body:     "Notification system test",
			tags:     []string{"shotclock", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key, fallback string) string {
	if p == nil {
		return fallback
	}
	value, ok := p[key]
	if !ok || value == nil {
		return fallback
	}
	s := strings.TrimSpace(fmt.Sprint(value))
	if s == "" {
		return fallback
	}
	return s
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
