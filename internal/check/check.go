// Package check validates generated outputs without converting anything
// (the "ogimage check" command). It is meant for pre-commit hooks and CI:
// every source must have an output of the canonical size whose source
// fingerprint matches the cache.
package check

import (
	"fmt"
	"image"
	_ "image/png"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/backmassage/ogimage/internal/asset"
	"github.com/backmassage/ogimage/internal/cache"
	"github.com/backmassage/ogimage/internal/config"
	"github.com/backmassage/ogimage/internal/pipeline"
)

// ErrProblems is returned by RunCheck when at least one output needs work.
var ErrProblems = errors.New("outputs need regeneration")

// Kind classifies a Problem.
type Kind string

const (
	Missing     Kind = "missing"
	Truncated   Kind = "truncated"
	Undecodable Kind = "undecodable"
	WrongSize   Kind = "wrong-size"
	Stale       Kind = "stale"
)

// Problem is one output that a build would regenerate or that is invalid.
type Problem struct {
	Key    string
	Kind   Kind
	Detail string
}

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a recording logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(string, ...interface{})
}

// Options describe what a valid output looks like.
type Options struct {
	Width  int
	Height int
	Cache  *cache.Cache
}

// Verify returns the problems found for pairs, in pair order.
func Verify(pairs []asset.Pair, opts Options) []Problem {
	var problems []Problem
	for _, p := range pairs {
		if pr, bad := verifyPair(p, opts); bad {
			problems = append(problems, pr)
		}
	}
	return problems
}

func verifyPair(p asset.Pair, opts Options) (Problem, bool) {
	problem := func(kind Kind, format string, args ...interface{}) (Problem, bool) {
		return Problem{Key: p.Key, Kind: kind, Detail: fmt.Sprintf(format, args...)}, true
	}

	fi, err := os.Stat(p.Output)
	if err != nil {
		return problem(Missing, "no %s", asset.OutputExt)
	}
	if fi.Size() < pipeline.MinOutputSize {
		return problem(Truncated, "%d bytes", fi.Size())
	}

	size, err := decodeSize(p.Output)
	if err != nil {
		return problem(Undecodable, "%v", err)
	}
	if size.X != opts.Width || size.Y != opts.Height {
		return problem(WrongSize, "%dx%d, want %dx%d", size.X, size.Y, opts.Width, opts.Height)
	}

	fp, err := cache.Fingerprint(p.Source)
	if err != nil {
		return problem(Stale, "cannot read source: %v", err)
	}
	stored, ok := opts.Cache.Get(p.Key)
	switch {
	case !ok:
		return problem(Stale, "no cache entry")
	case stored != fp:
		return problem(Stale, "source changed (%s -> %s)", stored, fp)
	}
	return Problem{}, false
}

func decodeSize(path string) (image.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Point{}, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Point{}, err
	}
	return image.Pt(cfg.Width, cfg.Height), nil
}

// RunCheck discovers sources, verifies their outputs and logs one line per
// problem. It returns an error marked ErrProblems when anything is wrong.
// Nothing is created or written.
func RunCheck(cfg *config.Config, paths config.Paths, log Logger) error {
	log.Info("=== Output Check ===")

	dirs := pipeline.CategoryDirs(cfg, paths)
	found := asset.Discover(paths.Root, dirs, asset.Options{Recursive: cfg.Recursive})
	for _, de := range found.Errors {
		log.Warn("Skipping category %s: %v", de.Dir.Category, de.Err)
	}
	if found.AllFailed(len(dirs)) {
		return pipeline.ErrNoSources
	}

	fc, err := cache.Load(paths.CacheFile)
	if err != nil {
		log.Warn("Cache unreadable, every output will be reported stale: %v", err)
	}

	problems := Verify(found.Pairs, Options{Width: cfg.Width, Height: cfg.Height, Cache: fc})
	for _, pr := range problems {
		log.Error("%s: %s (%s)", pr.Key, pr.Kind, pr.Detail)
	}

	if len(problems) == 0 {
		log.Success("All %d outputs are current (%dx%d)", len(found.Pairs), cfg.Width, cfg.Height)
		return nil
	}
	log.Info("Run ogimage to regenerate")
	return errors.Mark(errors.Newf("%d of %d outputs need attention", len(problems), len(found.Pairs)), ErrProblems)
}
