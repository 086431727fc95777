// Package asset pairs vector sources with their raster outputs and discovers
// them under the category directories.
package asset

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// File extensions (lowercase, with leading dot).
const (
	SourceExt = ".svg"
	OutputExt = ".png"
)

// Pair is one unit of work: a source file and the output derived from it.
// Source and Output are absolute; Key is the source path relative to the
// project root in slash form, used as the cache identity.
type Pair struct {
	Category string
	Source   string
	Output   string
	Key      string
}

// NewPair builds the pair for source. The output path and key are always
// derived here so a pair can never carry an inconsistent mapping.
func NewPair(root, category, source string) (Pair, error) {
	key, err := Key(root, source)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		Category: category,
		Source:   source,
		Output:   OutputPath(source),
		Key:      key,
	}, nil
}

// OutputPath swaps the source extension for OutputExt, keeping directory and
// base name.
//
//	public/og/posts/hello.svg -> public/og/posts/hello.png
func OutputPath(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + OutputExt
}

// Key returns source relative to root with forward slashes, so cache files
// are portable across machines and operating systems.
func Key(root, source string) (string, error) {
	rel, err := filepath.Rel(root, source)
	if err != nil {
		return "", errors.Wrapf(err, "relative path of %s", source)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Newf("%s is outside root %s", source, root)
	}
	return filepath.ToSlash(rel), nil
}

// IsSource reports whether path has the source extension (case-insensitive).
func IsSource(path string) bool {
	return strings.EqualFold(filepath.Ext(path), SourceExt)
}
