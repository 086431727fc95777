package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// FingerprintLength is the number of hex characters (48 bits) kept from the
// SHA-256 digest.
const FingerprintLength = 12

// Sum returns the fingerprint of data.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:FingerprintLength]
}

// Fingerprint streams the file at path through SHA-256 and returns the
// truncated hex digest.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open source")
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "hash %s", path)
	}
	return hex.EncodeToString(h.Sum(nil))[:FingerprintLength], nil
}
