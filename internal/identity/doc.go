// Package identity persists the device record shared with the pairing
// service: a stable device id generated on first run and the user id bound
// by a successful pairing.
package identity
