package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"shotclock/internal/config"
	"shotclock/internal/logging"
	"shotclock/internal/services"
)

// timeLayout is RFC 3339 with millisecond precision in UTC.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// TokenSource supplies bearer tokens.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type invalidator interface {
	Invalidate()
}

// Request is one sample ready for ingestion.
type Request struct {
	Image     []byte
	UserID    string
	StartTime time.Time
	EndTime   time.Time
}

// Response is the decoded ingestion reply. Message is best effort.
type Response struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
}

// StatusError reports a non-2xx ingestion response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ingestion returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("ingestion returned status %d: %s", e.StatusCode, e.Body)
}

// Is lets errors.Is(err, services.ErrUpload) match.
func (e *StatusError) Is(target error) bool {
	return target == services.ErrUpload
}

type payload struct {
	Screenshot string `json:"screenshot"`
	UserID     string `json:"userId"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
}

// Uploader posts samples to the ingestion endpoint.
type Uploader struct {
	endpoint string
	tokens   TokenSource
	client   services.HTTPDoer
	logger   *slog.Logger
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithHTTPClient overrides the HTTP backend.
func WithHTTPClient(client services.HTTPDoer) Option {
	return func(u *Uploader) {
		if client != nil {
			u.client = client
		}
	}
}

// New constructs an Uploader for analysis.ingest_url.
func New(cfg *config.Config, tokens TokenSource, logger *slog.Logger, opts ...Option) *Uploader {
	u := &Uploader{
		endpoint: cfg.Analysis.IngestURL,
		tokens:   tokens,
		logger:   logging.NewComponentLogger(logger, "upload"),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.client == nil {
		u.client = &http.Client{Timeout: cfg.UploadTimeout()}
	}
	return u
}

// Upload makes exactly one ingestion attempt. Token failures keep their
// services.ErrToken tag; every other failure matches services.ErrUpload.
func (u *Uploader) Upload(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(u.endpoint) == "" {
		return nil, services.Wrap(services.ErrUpload, "upload", "post", "analysis.ingest_url not configured", nil)
	}
	if u.tokens == nil {
		return nil, services.Wrap(services.ErrUpload, "upload", "post", "no token source", nil)
	}
	bearer, err := u.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload{
		Screenshot: base64.StdEncoding.EncodeToString(req.Image),
		UserID:     req.UserID,
		StartTime:  req.StartTime.UTC().Format(timeLayout),
		EndTime:    req.EndTime.UTC().Format(timeLayout),
	})
	if err != nil {
		return nil, services.Wrap(services.ErrUpload, "upload", "encode", "request body", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrUpload, "upload", "post", "build request", err)
	}
	httpReq.Header.Set("Authorization", "bearer "+bearer)
	httpReq.Header.Set("Content-Type", "application/json")
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		httpReq.Header.Set("X-Request-ID", rid)
	}

	resp, err := u.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(services.ErrTimeout, err)
		}
		return nil, services.Wrap(services.ErrUpload, "upload", "post", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized {
			if inv, ok := u.tokens.(invalidator); ok {
				inv.Invalidate()
			}
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: services.ReadErrorBody(resp)}
	}

	out := &Response{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, services.MaxErrorBody))
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			out.Message = strings.TrimSpace(string(data))
		}
	}
	out.StatusCode = resp.StatusCode
	u.logger.Debug("sample uploaded",
		logging.Int("status", resp.StatusCode),
		logging.Int("bytes", len(req.Image)),
		logging.String(logging.FieldEventType, "sample_uploaded"),
	)
	return out, nil
}
