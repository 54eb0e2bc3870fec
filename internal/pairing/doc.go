// Package pairing exchanges a user-entered pairing code for the account id
// the device should report under.
package pairing
