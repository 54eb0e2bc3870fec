package pairing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/text/unicode/norm"

	"shotclock/internal/config"
	"shotclock/internal/logging"
	"shotclock/internal/services"
)

const successCode = "SUCCESS"

type request struct {
	Code     string `json:"code"`
	DeviceID string `json:"device_id"`
}

type reply struct {
	Code string `json:"code"`
	Data struct {
		UserID string `json:"user_id"`
	} `json:"data"`
	Error string `json:"error"`
}

// Client validates pairing codes against the pairing endpoint.
type Client struct {
	endpoint string
	client   services.HTTPDoer
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP backend.
func WithHTTPClient(client services.HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// NewClient constructs a Client for pairing.url.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		endpoint: cfg.Pairing.URL,
		logger:   logging.NewComponentLogger(logger, "pairing"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: cfg.PairingTimeout()}
	}
	return c
}

// NormalizeCode trims a user-entered code and folds compatibility forms
// such as full-width digits.
func NormalizeCode(code string) string {
	return strings.TrimSpace(norm.NFKC.String(strings.TrimSpace(code)))
}

// Pair submits code for deviceID and returns the bound user id. Every
// failure is tagged services.ErrPairing.
func (c *Client) Pair(ctx context.Context, code, deviceID string) (string, error) {
	code = NormalizeCode(code)
	if code == "" {
		return "", services.Wrap(services.ErrPairing, "pairing", "validate", "pairing code is empty", nil)
	}
	if strings.TrimSpace(c.endpoint) == "" {
		return "", services.Wrap(services.ErrPairing, "pairing", "validate", "pairing.url not configured", nil)
	}

	body, err := json.Marshal(request{Code: code, DeviceID: deviceID})
	if err != nil {
		return "", services.Wrap(services.ErrPairing, "pairing", "encode", "request body", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", services.Wrap(services.ErrPairing, "pairing", "validate", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrPairing, "pairing", "validate", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", services.Wrap(services.ErrPairing, "pairing", "validate",
			fmt.Sprintf("status %d: %s", resp.StatusCode, services.ReadErrorBody(resp)), nil)
	}

	var out reply
	if err := json.NewDecoder(io.LimitReader(resp.Body, services.MaxErrorBody)).Decode(&out); err != nil {
		return "", services.Wrap(services.ErrPairing, "pairing", "decode", "malformed reply", err)
	}
	userID := strings.TrimSpace(out.Data.UserID)
	if out.Code != successCode || userID == "" {
		reason := strings.TrimSpace(out.Error)
		if reason == "" {
			reason = fmt.Sprintf("unexpected reply code %q", out.Code)
		}
		return "", services.Wrap(services.ErrPairing, "pairing", "validate", reason, nil)
	}

	c.logger.Info("pairing code accepted",
		logging.String("device_id", deviceID),
		logging.String("user_id", userID),
		logging.String(logging.FieldEventType, "pairing_succeeded"),
	)
	return userID, nil
}
