package outbox

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/zeebo/blake3"
)

// Digest returns the hex blake3-256 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// readVerified returns the file contents when they still match digest.
func readVerified(path, digest string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	if got := Digest(data); got != digest {
		return nil, fmt.Errorf("digest mismatch: stored %.12s, file %.12s", digest, got)
	}
	return data, nil
}
