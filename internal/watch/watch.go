// Package watch triggers rebuilds when source files change. Bursts of events
// (editors writing temp files, git checkouts) are debounced into one rebuild.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/backmassage/ogimage/internal/asset"
)

// DefaultDebounce is the quiet period after the last event before a rebuild.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches category directories for source changes.
type Watcher struct {
	fsw       *fsnotify.Watcher
	log       *zap.Logger
	recursive bool
	debounce  time.Duration

	mu    sync.Mutex
	timer *time.Timer
	fire  chan struct{}
}

// New watches dirs (and their subdirectories when recursive). Directories
// that do not exist are skipped.
func New(dirs []string, recursive bool, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}
	w := &Watcher{
		fsw:       fsw,
		log:       log,
		recursive: recursive,
		debounce:  DefaultDebounce,
		fire:      make(chan struct{}, 1),
	}

	watched := 0
	for _, dir := range dirs {
		n, err := w.add(dir)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		watched += n
	}
	if watched == 0 {
		fsw.Close()
		return nil, errors.New("no directory to watch")
	}
	log.Debug("watching sources", zap.Int("dirs", watched), zap.Bool("recursive", recursive))
	return w, nil
}

// SetDebounce overrides DefaultDebounce. Call before Run.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// add registers dir, and every non-hidden subdirectory when recursive.
func (w *Watcher) add(dir string) (int, error) {
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		w.log.Warn("not watching missing directory", zap.String("dir", dir))
		return 0, nil
	}
	if !w.recursive {
		if err := w.fsw.Add(dir); err != nil {
			return 0, errors.Wrapf(err, "watch %s", dir)
		}
		return 1, nil
	}

	n := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return errors.Wrapf(err, "watch %s", path)
		}
		n++
		return nil
	})
	return n, err
}

// Relevant reports whether ev should trigger a rebuild: a source file was
// written, created, removed or renamed.
func Relevant(ev fsnotify.Event) bool {
	if !asset.IsSource(ev.Name) || strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// schedule (re)arms the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.fire <- struct{}{}:
		default:
		}
	})
}

// Run blocks until ctx is done, calling rebuild once per debounced burst.
// rebuild runs on the caller's goroutine, so rebuilds never overlap; events
// arriving during a rebuild schedule the next one.
func (w *Watcher) Run(ctx context.Context, rebuild func(context.Context)) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.recursive && ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if _, err := w.add(ev.Name); err != nil {
						w.log.Warn("cannot watch new directory", zap.String("dir", ev.Name), zap.Error(err))
					}
					continue
				}
			}
			if !Relevant(ev) {
				continue
			}
			w.log.Debug("source changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			w.schedule()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))

		case <-w.fire:
			rebuild(ctx)
		}
	}
}

// Close stops the underlying watcher and any pending timer.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}
