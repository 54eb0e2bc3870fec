package outbox

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"shotclock/internal/config"
	"shotclock/internal/logging"
	"shotclock/internal/notifications"
	"shotclock/internal/services"
	"shotclock/internal/upload"
)

// Uploader delivers one sample.
type Uploader interface {
	Upload(ctx context.Context, req upload.Request) (*upload.Response, error)
}

// DrainResult summarizes one drain pass.
type DrainResult struct {
	Skipped     bool
	Attempted   int
	Delivered   int
	Rescheduled int
	Failed      int
}

// Drainer re-delivers due outbox items.
type Drainer struct {
	store    *Store
	uploader Uploader
	notifier notifications.Service
	online   func() bool
	logger   *slog.Logger
	now      func() time.Time

	interval        time.Duration
	batchSize       int
	maxAttempts     int
	baseBackoff     time.Duration
	maxBackoff      time.Duration
	deleteAfter     bool
	skipWhenOffline bool
}

// DrainerOption configures a Drainer.
type DrainerOption func(*Drainer)

// WithOnline supplies the reachability check consulted before each pass.
func WithOnline(online func() bool) DrainerOption {
	return func(d *Drainer) {
		d.online = online
	}
}

// WithNotifier sets the service told about permanently failed items.
func WithNotifier(notifier notifications.Service) DrainerOption {
	return func(d *Drainer) {
		if notifier != nil {
			d.notifier = notifier
		}
	}
}

// WithDrainerClock overrides the time source used for scheduling.
func WithDrainerClock(now func() time.Time) DrainerOption {
	return func(d *Drainer) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDrainer constructs a Drainer using the outbox section of cfg.
func NewDrainer(cfg *config.Config, store *Store, uploader Uploader, logger *slog.Logger, opts ...DrainerOption) *Drainer {
	base, ceiling := cfg.OutboxBackoff()
	d := &Drainer{
		store:           store,
		uploader:        uploader,
		notifier:        notifications.NewService(nil),
		logger:          logging.NewComponentLogger(logger, "outbox"),
		now:             time.Now,
		interval:        cfg.OutboxDrainInterval(),
		batchSize:       max(cfg.Outbox.BatchSize, 1),
		maxAttempts:     max(cfg.Outbox.MaxAttempts, 1),
		baseBackoff:     base,
		maxBackoff:      ceiling,
		deleteAfter:     cfg.Outbox.DeleteAfterUpload,
		skipWhenOffline: cfg.Outbox.SkipWhenOffline,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Backoff returns the delay before the next attempt once attempts uploads
// have failed: base doubled per prior failure, capped at ceiling.
func Backoff(base, ceiling time.Duration, attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := base
	for i := 1; i < attempts && delay < ceiling; i++ {
		delay *= 2
	}
	return min(delay, ceiling)
}

// Run drains once and then every interval until ctx is cancelled.
func (d *Drainer) Run(ctx context.Context) {
	d.drainLogged(ctx)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drainLogged(ctx)
		}
	}
}

func (d *Drainer) drainLogged(ctx context.Context) {
	result, err := d.Drain(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logging.WarnWithContext(d.logger, "outbox drain failed", "outbox_drain_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run shotclock status to check the outbox database"),
				logging.String(logging.FieldImpact, "saved samples stay queued until the next pass"),
			)
		}
		return
	}
	if result.Attempted > 0 {
		d.logger.Info("outbox drained",
			logging.String(logging.FieldEventType, "outbox_drained"),
			logging.Int("attempted", result.Attempted),
			logging.Int("delivered", result.Delivered),
			logging.Int("rescheduled", result.Rescheduled),
			logging.Int("failed", result.Failed),
		)
	}
}

// Drain processes one batch of due items.
func (d *Drainer) Drain(ctx context.Context) (DrainResult, error) {
	var result DrainResult
	if d.skipWhenOffline && d.online != nil && !d.online() {
		d.logger.Debug("outbox drain skipped while offline", logging.String(logging.FieldEventType, "outbox_drain_skipped"))
		result.Skipped = true
		return result, nil
	}

	items, err := d.store.Due(ctx, d.now(), d.batchSize)
	if err != nil {
		return result, err
	}
	for _, item := range items {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Attempted++
		status, err := d.deliver(ctx, item)
		if err != nil {
			return result, err
		}
		switch status {
		case StatusDelivered:
			result.Delivered++
		case StatusFailed:
			result.Failed++
		default:
			result.Rescheduled++
		}
	}
	return result, nil
}

// deliver attempts one item and records the outcome. The returned error is
// only for store failures; upload failures are recorded on the item.
func (d *Drainer) deliver(ctx context.Context, item *Item) (Status, error) {
	logger := d.logger.With(logging.Int64("item_id", item.ID), logging.String("path", item.Path))

	data, err := readVerified(item.Path, item.Digest)
	if err != nil {
		return StatusFailed, d.fail(ctx, logger, item, item.Attempts, err)
	}

	ctx = services.WithRequestID(ctx, uuid.NewString())
	_, err = d.uploader.Upload(ctx, upload.Request{
		Image:     data,
		UserID:    item.UserID,
		StartTime: item.StartTime,
		EndTime:   item.EndTime,
	})
	attempts := item.Attempts + 1
	if err != nil {
		if ctx.Err() != nil {
			return StatusPending, ctx.Err()
		}
		if attempts >= d.maxAttempts {
			return StatusFailed, d.fail(ctx, logger, item, attempts, err)
		}
		next := d.now().Add(Backoff(d.baseBackoff, d.maxBackoff, attempts))
		if markErr := d.store.MarkRetry(ctx, item.ID, attempts, next, err.Error()); markErr != nil {
			return StatusPending, markErr
		}
		logger.Info("outbox upload rescheduled",
			logging.String(logging.FieldEventType, "outbox_upload_rescheduled"),
			logging.Int("attempts", attempts),
			logging.Time("next_attempt_at", next),
			logging.ErrorKind(err),
			logging.Error(err),
		)
		return StatusPending, nil
	}

	if err := d.store.MarkDelivered(ctx, item.ID); err != nil {
		return StatusDelivered, err
	}
	logger.Info("outbox sample delivered",
		logging.String(logging.FieldEventType, "outbox_delivered"),
		logging.Int("attempts", attempts),
	)
	if d.deleteAfter {
		if err := os.Remove(item.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(logger, "delivered sample not removed", "outbox_remove_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check screenshot directory permissions"),
				logging.String(logging.FieldImpact, "sample remains on disk"),
			)
		}
	}
	return StatusDelivered, nil
}

func (d *Drainer) fail(ctx context.Context, logger *slog.Logger, item *Item, attempts int, cause error) error {
	if err := d.store.MarkFailed(ctx, item.ID, attempts, cause.Error()); err != nil {
		return err
	}
	logging.WarnWithContext(logger, "outbox item failed permanently", "outbox_item_failed",
		logging.Int("attempts", attempts),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "run shotclock outbox retry once the cause is fixed"),
		logging.String(logging.FieldImpact, "sample will not be uploaded automatically"),
	)
	if err := d.notifier.Publish(ctx, notifications.EventOutboxItemFailed, notifications.Payload{
		"path":     item.Path,
		"attempts": strconv.Itoa(attempts),
		"error":    cause.Error(),
	}); err != nil {
		logger.Debug("outbox notification failed", logging.Error(err))
	}
	return nil
}
