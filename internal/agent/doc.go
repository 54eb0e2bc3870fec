// Package agent runs the capture cycle.
//
// A Supervisor owns the repeating capture timer and its Running/Paused state.
// Each timer tick captures one sample and routes it to the Uploader or the
// local Persister depending on the analysis flag and the pairing binding;
// upload failures fall back to a local save and, with the outbox enabled, a
// queued re-delivery. At most one tick is in flight; a tick that would
// overlap is skipped and counted. Snapshot reports the state, the status
// line, and counters for the CLI.
//
// Pairer submits a pairing code, binds the returned user id on the session,
// and starts the supervisor when it has never been started.
package agent
