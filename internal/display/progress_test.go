package display

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/ogimage/internal/logging"
)

func TestNewProgress_NonTTYCountsWithDebugLines(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf, true)

	p := NewProgress(2, log)
	counter, ok := p.(*counterProgress)
	require.True(t, ok, "tests never run with a TTY on stdout")

	p.Advance("posts/a.svg", true)
	p.Advance("posts/b.svg", false)
	p.Stop()

	assert.Equal(t, 2, counter.Count())
	assert.Contains(t, buf.String(), "[1/2 (50%)] posts/a.svg ok")
	assert.Contains(t, buf.String(), "[2/2 (100%)] posts/b.svg failed")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
