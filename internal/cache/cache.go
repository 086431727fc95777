// Package cache persists source fingerprints between runs so unchanged
// sources can be skipped. The on-disk form is a single JSON object mapping a
// root-relative source path to a short hex digest of its bytes.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/backmassage/ogimage/internal/fsutil"
)

// ErrCorrupt marks a cache file that exists but could not be decoded.
var ErrCorrupt = errors.New("fingerprint cache is corrupt")

// Cache is the in-memory fingerprint map for one run. All methods are
// goroutine-safe.
type Cache struct {
	mu      sync.Mutex
	path    string
	entries map[string]string
	dirty   bool
}

// New returns an empty cache that persists to path.
func New(path string) *Cache {
	return &Cache{path: path, entries: make(map[string]string)}
}

// Load reads the cache file at path. A missing file yields an empty cache
// and no error. An unreadable or corrupt file yields an empty cache plus an
// error describing why; the returned cache is always usable, so callers log
// the error and continue.
func Load(path string) (*Cache, error) {
	c := New(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, errors.Wrapf(err, "read cache %s", path)
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return c, errors.Mark(errors.Wrapf(err, "parse cache %s", path), ErrCorrupt)
	}
	for k, v := range entries {
		c.entries[k] = v
	}
	return c, nil
}

// Get returns the stored fingerprint for key.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fp, ok := c.entries[key]
	return fp, ok
}

// Set records fp for key. Only call once the output for key exists.
func (c *Cache) Set(key, fp string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[key]; ok && old == fp {
		return
	}
	c.entries[key] = fp
	c.dirty = true
}

// Prune drops every entry for which keep returns false and reports how many
// were removed.
func (c *Cache) Prune(keep func(key string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k := range c.entries {
		if !keep(k) {
			delete(c.entries, k)
			removed++
		}
	}
	if removed > 0 {
		c.dirty = true
	}
	return removed
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Save writes the cache atomically if it changed. It reports whether a
// write happened.
func (c *Cache) Save() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return false, nil
	}

	// encoding/json sorts map keys, which keeps diffs of the file stable.
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return false, errors.Wrap(err, "encode cache")
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return false, errors.Wrap(err, "create cache directory")
	}
	if err := fsutil.WriteFileAtomic(c.path, data, 0o644); err != nil {
		return false, errors.Wrap(err, "write cache")
	}
	c.dirty = false
	return true, nil
}
