// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// The server registers a single "Shotclock" receiver. Handlers report
// operational failures in response fields so the CLI can render them; an RPC
// error means the request itself was malformed. Reuse these types when adding
// endpoints to keep the protocol stable.
package ipc
