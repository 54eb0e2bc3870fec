// Package logs reads the daemon's run logs for the CLI.
//
// Last returns the final lines of a file with bounded memory, and Follow
// polls from an offset for appended lines. The shotclock.log pointer is
// replaced on every daemon start, so Follow reopens the path on each poll and
// restarts from the beginning when the file shrinks.
package logs
