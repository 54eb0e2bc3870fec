package capture

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"shotclock/internal/config"
	"shotclock/internal/logging"
	"shotclock/internal/services"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// Sample is one captured screen image.
type Sample struct {
	Image      []byte
	CapturedAt time.Time
	Display    string
}

// Capturer produces samples from the first available display.
type Capturer struct {
	source  Source
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithSource replaces the command-backed source.
func WithSource(src Source) Option {
	return func(c *Capturer) {
		if src != nil {
			c.source = src
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Capturer) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a Capturer from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Capturer {
	c := &Capturer{
		timeout: cfg.CaptureTimeout(),
		now:     time.Now,
		logger:  logging.NewComponentLogger(logger, "capture"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.source == nil {
		c.source = NewCommandSource(cfg.Capture, nil)
	}
	return c
}

// Capture grabs the first enumerated display. Any failure is tagged
// services.ErrCapture.
func (c *Capturer) Capture(ctx context.Context) (Sample, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	displays, err := c.source.Displays(ctx)
	if err != nil {
		return Sample{}, services.Wrap(services.ErrCapture, "capture", "enumerate", "could not list displays", err)
	}
	if len(displays) == 0 {
		return Sample{}, services.Wrap(services.ErrCapture, "capture", "enumerate", "no displays available", nil)
	}
	display := displays[0]

	capturedAt := c.now()
	image, err := c.source.Grab(ctx, display)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = errors.Join(services.ErrTimeout, err)
		}
		return Sample{}, services.Wrap(services.ErrCapture, "capture", "grab", "display "+display, err)
	}
	if !bytes.HasPrefix(image, pngSignature) {
		return Sample{}, services.Wrap(services.ErrCapture, "capture", "grab", "output is not a PNG image", nil)
	}

	c.logger.Debug("screen captured",
		logging.String("display", display),
		logging.Int("bytes", len(image)),
		logging.Int("displays", len(displays)),
		logging.String(logging.FieldEventType, "screen_captured"),
	)
	return Sample{Image: image, CapturedAt: capturedAt, Display: display}, nil
}
