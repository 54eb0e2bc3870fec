// Command shotclock controls the screenshot agent.
//
// The daemon subcommand hosts the capture pipeline; every other subcommand
// talks to it over the IPC socket. start launches a detached daemon when none
// is reachable. status falls back to local state when the daemon is down.
package main
