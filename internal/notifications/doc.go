// Package notifications delivers agent events (pairing results, connectivity
// transitions, abandoned uploads) to an ntfy topic. Without a topic every
// publish is a no-op.
package notifications
