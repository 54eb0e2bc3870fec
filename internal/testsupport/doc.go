// Package testsupport holds helpers shared by package tests: isolated
// configs, stub executables on PATH, sample PNG data, and outbox stores.
package testsupport
