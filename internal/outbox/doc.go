// Package outbox persists locally saved samples that still need delivery to
// the ingestion endpoint and re-uploads them in the background.
//
// The Store owns the SQLite database at <state_dir>/outbox.db: connection
// setup, embedded migrations, busy retries, and status transitions between
// pending, delivered, and failed. Each item records the blake3 digest of the
// file as it was written so the Drainer can refuse to upload a sample that
// changed on disk.
//
// The Drainer loads due pending items oldest first, verifies them, uploads
// them, and reschedules failures with capped exponential backoff. Items that
// exhaust their attempts are marked failed and reported through
// notifications; `shotclock outbox retry` returns them to pending.
package outbox
