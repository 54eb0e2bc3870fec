// Package preflight provides readiness checks for the directories, external
// commands, and endpoints shotclock depends on.
//
// The daemon logs RunAll results at startup so a misconfigured capture
// command or unwritable screenshot directory shows up before the first tick.
// The CLI "shotclock status" command renders the same results alongside the
// external command availability from CheckSystemDeps.
//
// Endpoint checks only validate configuration; they are gated by the
// analysis toggle so a local-only setup reports them as disabled.
package preflight
