package pipeline

import "time"

// RunStats tracks aggregate counters for one build. Purely diagnostic.
type RunStats struct {
	Total      int // Sources discovered.
	Stale      int // Sources the staleness filter selected.
	Skipped    int // Sources whose output was current.
	Converted  int
	Failed     int
	NotStarted int // Left over after an interrupt.
	Pruned     int // Cache entries dropped for vanished sources.
	DirErrors  int // Category directories that could not be scanned.

	OutputBytes int64
	Elapsed     time.Duration

	// FailedKeys names every failed source, for re-running by hand.
	FailedKeys []string
	// CacheSaved is true when the fingerprint cache was written.
	CacheSaved bool
}

// Interrupted reports whether cancellation left stale sources unconverted.
func (s *RunStats) Interrupted() bool { return s.NotStarted > 0 }

// Clean reports whether every attempted conversion succeeded.
func (s *RunStats) Clean() bool { return s.Failed == 0 && s.NotStarted == 0 }
