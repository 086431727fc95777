package asset

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Dir is one category directory to scan.
type Dir struct {
	Category string
	Path     string
}

// DirError reports a directory that could not be created or read. Discovery
// continues with the remaining directories.
type DirError struct {
	Dir Dir
	Err error
}

func (e DirError) Error() string {
	return e.Dir.Category + ": " + e.Err.Error()
}

func (e DirError) Unwrap() error { return e.Err }

// Options control how directories are scanned.
type Options struct {
	// Recursive also collects sources in subdirectories. Hidden
	// subdirectories are never entered.
	Recursive bool
	// Create makes missing category directories instead of reporting them.
	Create bool
}

// Result is the outcome of Discover. Pairs are sorted by Key.
type Result struct {
	Pairs  []Pair
	Errors []DirError
}

// AllFailed reports whether every scanned directory failed.
func (r Result) AllFailed(dirs int) bool {
	return dirs > 0 && len(r.Errors) >= dirs
}

// Discover scans each directory for source files and pairs them with their
// outputs. A directory that cannot be created or read is recorded in
// Result.Errors and skipped; it never aborts the scan of its siblings.
func Discover(root string, dirs []Dir, opts Options) Result {
	var res Result
	for _, d := range dirs {
		pairs, err := scanDir(root, d, opts)
		if err != nil {
			res.Errors = append(res.Errors, DirError{Dir: d, Err: err})
			continue
		}
		res.Pairs = append(res.Pairs, pairs...)
	}
	sort.Slice(res.Pairs, func(i, j int) bool { return res.Pairs[i].Key < res.Pairs[j].Key })
	return res
}

func scanDir(root string, d Dir, opts Options) ([]Pair, error) {
	if opts.Create {
		if err := os.MkdirAll(d.Path, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create %s", d.Path)
		}
	}
	fi, err := os.Stat(d.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", d.Path)
	}
	if !fi.IsDir() {
		return nil, errors.Newf("%s is not a directory", d.Path)
	}

	var pairs []Pair
	err = filepath.WalkDir(d.Path, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path == d.Path {
				return nil
			}
			if !opts.Recursive || strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() || !IsSource(path) {
			return nil
		}
		p, err := NewPair(root, d.Category, path)
		if err != nil {
			return err
		}
		pairs = append(pairs, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", d.Path)
	}
	return pairs, nil
}
