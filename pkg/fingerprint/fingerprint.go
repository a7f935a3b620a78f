// Package fingerprint computes content fingerprints for media payloads.
//
// In-memory and on-disk hashing use the same digest (SHA-256) so the two are
// interchangeable: Hash(p) == HashFile(path) whenever path contains exactly p.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Hash returns the hex-encoded SHA-256 digest of p.
// A zero-length payload yields the digest of the empty string.
func Hash(p []byte) string {
	sum := sha256.Sum256(p)
	return hex.EncodeToString(sum[:])
}

// HashFile returns the hex-encoded SHA-256 digest of the file at path.
// The file is streamed; it is never loaded into memory whole.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint: open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("fingerprint: read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
