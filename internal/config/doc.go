// Package config loads, normalizes, and validates shotclock configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SHOTCLOCK_INGEST_URL. The Config type centralizes every knob the daemon and
// CLI need: the capture interval and feature toggles, the ingestion, pairing,
// and connectivity endpoints, and the state directory that holds the device
// identity, outbox database, and control socket.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
