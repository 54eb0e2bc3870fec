// Package daemon coordinates the long-running shotclock process.
//
// A Daemon owns the capture supervisor, the pairing flow, the connectivity
// monitor, the outbox drainer, and a retention loop that prunes old
// screenshots and logs. A flock on <state_dir>/shotclock.lock keeps a single
// instance per user. The methods here are the surface the IPC server calls;
// each stage lives in its own package and the daemon only handles startup,
// shutdown, and routing.
package daemon
