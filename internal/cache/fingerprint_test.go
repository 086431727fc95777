package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_MatchesSumAndIsShort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.svg")
	data := []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 2 1"/>`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	fp, err := Fingerprint(path)
	require.NoError(t, err)
	assert.Len(t, fp, FingerprintLength)
	assert.Equal(t, Sum(data), fp)
	assert.Regexp(t, `^[0-9a-f]+$`, fp)
}

func TestFingerprint_SingleByteChangeChangesDigest(t *testing.T) {
	a := []byte(`<svg viewBox="0 0 10 10"><rect width="5" height="5"/></svg>`)
	b := append([]byte(nil), a...)
	b[len(b)-10] ^= 0x01

	assert.NotEqual(t, Sum(a), Sum(b))
	assert.Equal(t, Sum(a), Sum(append([]byte(nil), a...)), "digest must be deterministic")
}

func TestFingerprint_MissingFile(t *testing.T) {
	_, err := Fingerprint(filepath.Join(t.TempDir(), "gone.svg"))
	assert.Error(t, err)
}
