// Package logging assembles the structured slog loggers used by the shotclock
// daemon and CLI.
//
// It owns the console and JSON handlers, output plumbing, and the standard
// field names (component, event_type, error_hint, impact, tick_id) that every
// component attaches. WarnWithContext and ErrorWithContext enforce those
// fields on problem reports. CleanupOldLogs prunes run logs and, via the
// persist package, old screenshots.
package logging
