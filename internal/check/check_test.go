package check

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/ogimage/internal/config"
	"github.com/backmassage/ogimage/internal/logging"
	"github.com/backmassage/ogimage/internal/pipeline"
)

// recordLogger collects formatted lines per level.
type recordLogger struct {
	lines map[string][]string
}

func newRecordLogger() *recordLogger { return &recordLogger{lines: map[string][]string{}} }

func (r *recordLogger) add(level, format string, args ...interface{}) {
	r.lines[level] = append(r.lines[level], fmt.Sprintf(format, args...))
}

func (r *recordLogger) Info(f string, a ...interface{})    { r.add("info", f, a...) }
func (r *recordLogger) Success(f string, a ...interface{}) { r.add("success", f, a...) }
func (r *recordLogger) Warn(f string, a ...interface{})    { r.add("warn", f, a...) }
func (r *recordLogger) Error(f string, a ...interface{})   { r.add("error", f, a...) }
func (r *recordLogger) Debug(f string, a ...interface{})   { r.add("debug", f, a...) }

const box = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 200 100"><rect width="200" height="100" fill="#336699"/></svg>`

// built writes posts/a.svg and posts/b.svg and runs a full build.
func built(t *testing.T) (config.Config, config.Paths) {
	t.Helper()
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Root = root
	cfg.SourceRoot = "og"
	cfg.Categories = []string{"posts"}
	paths, err := cfg.ResolvePaths(root)
	require.NoError(t, err)

	dir := paths.CategoryDir("posts")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range []string{"a.svg", "b.svg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(box), 0o644))
	}

	_, err = pipeline.Run(context.Background(), &cfg, paths, logging.New(io.Discard, false), pipeline.Options{})
	require.NoError(t, err)
	return cfg, paths
}

func TestRunCheck_CleanBuildPasses(t *testing.T) {
	cfg, paths := built(t)
	log := newRecordLogger()

	require.NoError(t, RunCheck(&cfg, paths, log))
	assert.Empty(t, log.lines["error"])
	assert.Equal(t, []string{"All 2 outputs are current (1200x630)"}, log.lines["success"])
}

func TestRunCheck_ReportsEachKind(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, dir string, paths config.Paths)
		kind   Kind
	}{
		{"missing", func(t *testing.T, dir string, _ config.Paths) {
			require.NoError(t, os.Remove(filepath.Join(dir, "a.png")))
		}, Missing},
		{"truncated", func(t *testing.T, dir string, _ config.Paths) {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("short"), 0o644))
		}, Truncated},
		{"undecodable", func(t *testing.T, dir string, _ config.Paths) {
			junk := make([]byte, 512)
			require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), junk, 0o644))
		}, Undecodable},
		{"wrong size", func(t *testing.T, dir string, _ config.Paths) {
			img := imaging.New(600, 315, color.White)
			require.NoError(t, imaging.Save(img, filepath.Join(dir, "a.png")))
		}, WrongSize},
		{"edited source", func(t *testing.T, dir string, _ config.Paths) {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "a.svg"), []byte(box+"\n"), 0o644))
		}, Stale},
		{"cache lost", func(t *testing.T, _ string, paths config.Paths) {
			require.NoError(t, os.WriteFile(paths.CacheFile, []byte(`{"og/posts/b.svg":"x"}`), 0o644))
		}, Stale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, paths := built(t)
			tt.mutate(t, paths.CategoryDir("posts"), paths)
			log := newRecordLogger()

			err := RunCheck(&cfg, paths, log)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrProblems))
			require.NotEmpty(t, log.lines["error"])
			assert.Contains(t, log.lines["error"][0], "og/posts/a.svg: "+string(tt.kind))
		})
	}
}

func TestRunCheck_CreatesNothing(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Root = root
	cfg.Categories = []string{"posts", "news"}
	paths, err := cfg.ResolvePaths(root)
	require.NoError(t, err)

	err = RunCheck(&cfg, paths, newRecordLogger())
	assert.ErrorIs(t, err, pipeline.ErrNoSources)
	assert.NoDirExists(t, paths.SourceRoot)
	assert.NoFileExists(t, paths.CacheFile)
}
