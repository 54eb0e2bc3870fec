// Package connectivity answers "is the network reachable" with a single GET
// against a well-known URL. Checker is a pure query apart from the bit it
// keeps for transition logs; Monitor polls it for status reporting and
// notifications.
package connectivity
