package logging

import (
	"context"
	"log/slog"

	"shotclock/internal/services"
)

const (
	// FieldComponent names the subsystem emitting the log line.
	FieldComponent = "component"
	// FieldEventType is a stable machine-readable event name.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldCorrelationID carries request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldTickID identifies one capture tick across components.
	FieldTickID = "tick_id"
	// FieldAlert flags lines that should stand out when scanning logs.
	FieldAlert = "alert"
	// FieldErrorKind carries the classification from services.Kind.
	FieldErrorKind = "error_kind"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.TickIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldTickID, id))
	}
	if component, ok := services.ComponentFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldComponent, component))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
