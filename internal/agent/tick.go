package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"shotclock/internal/capture"
	"shotclock/internal/logging"
	"shotclock/internal/outbox"
	"shotclock/internal/services"
	"shotclock/internal/upload"
)

const (
	statusNoCaptures   = "No captures yet"
	statusUploaded     = "Uploaded at %s"
	statusSaved        = "Saved at %s"
	statusSavedFailed  = "Saved locally at %s (upload failed)"
	statusSavedNoUser  = "Saved locally at %s (not paired)"
	statusSaveFailedAt = "Save failed at %s"

	clockLayout = "15:04:05"
)

type outcome int

const (
	outcomeUploaded outcome = iota
	outcomeSaved
	outcomeFailed
)

// tick captures one sample and routes it. Failures are logged and recorded;
// none escape.
func (s *Supervisor) tick(ctx context.Context, epoch uint64) {
	ctx = services.WithTickID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, s.logger)

	sample, err := s.deps.Capturer.Capture(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "screen capture failed", "capture_failed",
			logging.Error(err),
			logging.ErrorKind(err),
			logging.String(logging.FieldErrorHint, "verify capture.command works from this session"),
			logging.String(logging.FieldImpact, "no sample recorded for this interval"),
		)
		s.mu.Lock()
		s.counters.Failed++
		s.lastErr = err
		s.mu.Unlock()
		return
	}

	start := s.blockStartFor(sample.CapturedAt)
	stamp := sample.CapturedAt.Local().Format(clockLayout)
	userID := s.session.UserID()

	switch {
	case s.cfg.Analysis.Enabled && userID != "":
		s.uploadOrSave(ctx, logger, sample, userID, start, stamp)
	case s.cfg.Analysis.Enabled:
		s.save(logger, sample, statusSavedNoUser, stamp, nil)
	default:
		s.save(logger, sample, statusSaved, stamp, nil)
	}

	s.endTick(epoch, sample.CapturedAt)
}

func (s *Supervisor) uploadOrSave(ctx context.Context, logger *slog.Logger, sample capture.Sample, userID string, start time.Time, stamp string) {
	uploadCtx := services.WithRequestID(ctx, uuid.NewString())
	_, err := s.deps.Uploader.Upload(uploadCtx, upload.Request{
		Image:     sample.Image,
		UserID:    userID,
		StartTime: start,
		EndTime:   sample.CapturedAt,
	})
	if err == nil {
		logger.Info("sample uploaded",
			logging.String(logging.FieldEventType, "sample_uploaded"),
			logging.Int("bytes", len(sample.Image)),
		)
		s.record(outcomeUploaded, fmt.Sprintf(statusUploaded, stamp), nil, sample.CapturedAt)
		return
	}

	logging.WarnWithContext(logger, "upload failed; saving sample locally", "upload_failed",
		logging.Error(err),
		logging.ErrorKind(err),
		logging.String(logging.FieldErrorHint, "check analysis.ingest_url and the token command"),
		logging.String(logging.FieldImpact, "sample kept on disk instead of analyzed"),
	)
	path, ok := s.save(logger, sample, statusSavedFailed, stamp, err)
	if !ok || s.deps.Outbox == nil {
		return
	}
	item, qerr := s.deps.Outbox.Enqueue(ctx, outbox.Entry{
		Path:      path,
		Digest:    outbox.Digest(sample.Image),
		UserID:    userID,
		StartTime: start,
		EndTime:   sample.CapturedAt,
	})
	if qerr != nil {
		logging.WarnWithContext(logger, "sample not queued for re-delivery", "outbox_enqueue_failed",
			logging.String("path", path),
			logging.Error(qerr),
			logging.String(logging.FieldErrorHint, "run shotclock status to check the outbox database"),
			logging.String(logging.FieldImpact, "sample stays on disk but will not be re-uploaded"),
		)
		return
	}
	logger.Debug("sample queued for re-delivery",
		logging.String(logging.FieldEventType, "outbox_enqueued"),
		logging.Int64("item_id", item.ID),
	)
}

// save persists sample and records the outcome. cause is the upload error
// that led here, if any.
func (s *Supervisor) save(logger *slog.Logger, sample capture.Sample, format, stamp string, cause error) (string, bool) {
	path, err := s.deps.Persister.Persist(sample)
	if err != nil {
		logging.ErrorWithContext(logger, "sample could not be saved", "persist_failed",
			logging.Error(err),
			logging.ErrorKind(err),
			logging.String(logging.FieldErrorHint, "check paths.screenshot_dir exists and is writable"),
			logging.String(logging.FieldImpact, "sample lost"),
		)
		s.record(outcomeFailed, fmt.Sprintf(statusSaveFailedAt, stamp), err, sample.CapturedAt)
		return "", false
	}
	logger.Info("sample saved",
		logging.String(logging.FieldEventType, "sample_saved"),
		logging.String("path", path),
	)
	s.record(outcomeSaved, fmt.Sprintf(format, stamp), cause, sample.CapturedAt)
	return path, true
}

func (s *Supervisor) record(kind outcome, status string, err error, captured time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case outcomeUploaded:
		s.counters.Uploaded++
	case outcomeSaved:
		s.counters.Saved++
	case outcomeFailed:
		s.counters.Failed++
	}
	s.status = status
	s.lastCapture = captured
	if err != nil {
		s.lastErr = err
	}
}

// blockStartFor returns the start of the time block ending at captured.
func (s *Supervisor) blockStartFor(captured time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blockStart.IsZero() || s.blockStart.After(captured) {
		return captured
	}
	return s.blockStart
}

// endTick starts the next block at the end of this tick unless the timer was
// reinstalled meanwhile, in which case the resume instant stands.
func (s *Supervisor) endTick(epoch uint64, captured time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return
	}
	end := s.clock.Now()
	if end.Before(captured) {
		end = captured
	}
	s.blockStart = end
}
