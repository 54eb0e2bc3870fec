// Package services defines shared utilities consumed by the capture pipeline
// components and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp tick IDs, component names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, so a capture, persist,
//     token, upload, or pairing failure can be classified with errors.Is
//     wherever it surfaces.
//
// Use these helpers when wiring new components so failure reporting stays
// uniform across the daemon, the control socket, and the CLI.
package services
