// Package persist saves samples as timestamped PNG files and prunes old ones.
package persist
