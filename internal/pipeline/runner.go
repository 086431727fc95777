package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/backmassage/ogimage/internal/asset"
	"github.com/backmassage/ogimage/internal/batch"
	"github.com/backmassage/ogimage/internal/cache"
	"github.com/backmassage/ogimage/internal/config"
	"github.com/backmassage/ogimage/internal/display"
	"github.com/backmassage/ogimage/internal/fsutil"
	"github.com/backmassage/ogimage/internal/logging"
	"github.com/backmassage/ogimage/internal/raster"
)

// ErrNoSources is returned when no category directory could be scanned.
var ErrNoSources = errors.New("no category directory could be scanned")

// Converter turns source bytes into output bytes.
type Converter interface {
	Convert(ctx context.Context, svg []byte) ([]byte, error)
}

// Options override the default collaborators. The zero value uses
// ContentHash(cfg.Force) and a raster.Converter built from cfg.
type Options struct {
	Staleness Staleness
	Converter Converter
}

// task is the runtime unit handed to the executor.
type task struct {
	pair        asset.Pair
	fingerprint string // Of the exact bytes converted.
	size        int64
	done        bool
}

// CategoryDirs lists the configured category directories.
func CategoryDirs(cfg *config.Config, paths config.Paths) []asset.Dir {
	dirs := make([]asset.Dir, 0, len(cfg.Categories))
	for _, name := range cfg.Categories {
		dirs = append(dirs, asset.Dir{Category: name, Path: paths.CategoryDir(name)})
	}
	return dirs
}

// Run performs one build. Per-file failures are counted and logged, never
// returned. The error result is reserved for setup failures: every category
// directory failing, or the cache file not being writable.
func Run(ctx context.Context, cfg *config.Config, paths config.Paths, log *logging.Logger, opts Options) (RunStats, error) {
	start := time.Now()
	var stats RunStats

	dirs := CategoryDirs(cfg, paths)
	found := asset.Discover(paths.Root, dirs, asset.Options{Recursive: cfg.Recursive, Create: !cfg.DryRun})
	for _, de := range found.Errors {
		log.Error("Skipping category %s: %v", de.Dir.Category, de.Err)
	}
	stats.DirErrors = len(found.Errors)
	if found.AllFailed(len(dirs)) {
		return stats, ErrNoSources
	}
	stats.Total = len(found.Pairs)

	fc, err := cache.Load(paths.CacheFile)
	if err != nil {
		log.Warn("Ignoring unreadable cache, every source will be rehashed: %v", err)
	}

	needs := opts.Staleness
	if needs == nil {
		needs = ContentHash(cfg.Force)
	}
	stale, fresh := filter(found.Pairs, fc, needs)
	stats.Stale = len(stale)
	stats.Skipped = len(fresh)
	for _, p := range fresh {
		log.Debug("Up to date: %s", p.Key)
	}

	logBatchHeader(cfg, log, &stats)

	if cfg.DryRun {
		for _, p := range stale {
			log.Success("[DRY] Would convert %s", p.Key)
		}
		stats.Elapsed = time.Since(start)
		logSummary(cfg, log, &stats)
		return stats, nil
	}

	conv := opts.Converter
	if conv == nil {
		conv = raster.New(raster.Options{
			Width:      cfg.Width,
			Height:     cfg.Height,
			Background: cfg.BackgroundColor(),
		})
	}

	if len(stale) > 0 {
		convertAll(ctx, cfg, conv, fc, stale, log, &stats)
	}

	if !stats.Interrupted() && stats.DirErrors == 0 {
		stats.Pruned = fc.Prune(func(key string) bool {
			_, err := os.Stat(filepath.Join(paths.Root, filepath.FromSlash(key)))
			return err == nil
		})
		if stats.Pruned > 0 {
			log.Debug("Pruned %d cache entries for removed sources", stats.Pruned)
		}
	}

	saved, err := fc.Save()
	stats.CacheSaved = saved
	stats.Elapsed = time.Since(start)
	logSummary(cfg, log, &stats)
	if err != nil {
		return stats, errors.Wrap(err, "save fingerprint cache")
	}
	return stats, nil
}

// convertAll runs the executor over the stale pairs. The cache is only
// touched from the completion callback, which batch.Run serializes.
func convertAll(ctx context.Context, cfg *config.Config, conv Converter, fc *cache.Cache, stale []asset.Pair, log *logging.Logger, stats *RunStats) {
	tasks := make([]*task, len(stale))
	for i, p := range stale {
		tasks[i] = &task{pair: p}
	}

	progress := display.NewProgress(len(tasks), log)
	work := func(ctx context.Context, t *task) error {
		return convertOne(ctx, conv, t)
	}
	done := func(t *task, err error) {
		t.done = err == nil
		progress.Advance(t.pair.Key, t.done)
		if err != nil {
			stats.FailedKeys = append(stats.FailedKeys, t.pair.Key)
			log.Error("%s: %v", t.pair.Key, err)
			return
		}
		fc.Set(t.pair.Key, t.fingerprint)
		stats.OutputBytes += t.size
	}

	summary := batch.Run(ctx, tasks, batch.Options{Limit: cfg.Concurrency, Timeout: cfg.TaskTimeout}, work, done)
	progress.Stop()
	sort.Strings(stats.FailedKeys)

	stats.Converted = summary.Succeeded
	stats.Failed = summary.Failed
	stats.NotStarted = summary.NotStarted
	if summary.Interrupted() {
		log.Warn("Interrupted, %d sources not started", summary.NotStarted)
	}
}

// convertOne reads, converts and writes one pair. The output write is the
// last step, so a failure leaves any previous output untouched.
func convertOne(ctx context.Context, conv Converter, t *task) error {
	src, err := os.ReadFile(t.pair.Source)
	if err != nil {
		return errors.Wrap(err, "read source")
	}
	out, err := conv.Convert(ctx, src)
	if err != nil {
		return errors.Wrap(err, "convert")
	}
	if len(out) < MinOutputSize {
		return errors.Newf("converter produced %d bytes, below the %d-byte floor", len(out), MinOutputSize)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(t.pair.Output, out, 0o644); err != nil {
		return err
	}
	t.fingerprint = cache.Sum(src)
	t.size = int64(len(out))
	return nil
}

// --- Logging helpers ---

func logBatchHeader(cfg *config.Config, log *logging.Logger, stats *RunStats) {
	log.Info("Found %d sources in %d categories", stats.Total, len(cfg.Categories))
	log.Info("Output: %s", cfg.String())
	switch {
	case cfg.Force:
		log.Info("Cache: bypassed (--force), %d to convert", stats.Stale)
	default:
		log.Info("Cache: %d up to date, %d to convert", stats.Skipped, stats.Stale)
	}
	if cfg.DryRun {
		log.Warn("DRY RUN")
	}
}

func logSummary(cfg *config.Config, log *logging.Logger, stats *RunStats) {
	log.Info("==============================")
	if cfg.DryRun {
		log.Info("Done: %d would be converted, %d up to date", stats.Stale, stats.Skipped)
		return
	}

	if len(stats.FailedKeys) > 0 {
		log.Error("Failed sources:")
		for _, k := range stats.FailedKeys {
			log.Error("  %s", k)
		}
	}

	ratio := display.FormatRatio(stats.Converted, stats.Stale)
	switch {
	case stats.Stale == 0:
		log.Success("Done: nothing to convert, %d up to date", stats.Skipped)
	case stats.Clean():
		log.Success("Done: %s converted, %d up to date", ratio, stats.Skipped)
	default:
		log.Warn("Done: %s converted, %d failed, %d not started, %d up to date",
			ratio, stats.Failed, stats.NotStarted, stats.Skipped)
	}
	if stats.Converted > 0 {
		log.Info("  Written: %s in %s", display.FormatBytes(stats.OutputBytes), display.FormatElapsed(stats.Elapsed))
	}
	if stats.DirErrors > 0 {
		log.Warn("  %d category directories skipped", stats.DirErrors)
	}
}
