package config

// This file registers CLI flags on a cobra/pflag FlagSet and binds each one
// to its viper key, so flag values override config file and environment.
// Flags are grouped into paths, geometry, behavior and display.

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps flag names to viper keys where they differ.
var flagKeys = map[string]string{
	"source-root": "source_root",
	"category":    "categories",
	"cache-file":  "cache_file",
	"timeout":     "task_timeout",
	"dry-run":     "dry_run",
	"no-color":    "no_color",
	"log":         "log_file",
}

// BindFlags defines every config flag on fs and binds it to v.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	d := DefaultConfig()

	definePathFlags(fs, &d)
	defineGeometryFlags(fs, &d)
	defineBehaviorFlags(fs, &d)
	defineDisplayFlags(fs, &d)

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil || f.Name == "config" {
			return
		}
		key := f.Name
		if k, ok := flagKeys[f.Name]; ok {
			key = k
		}
		if err := v.BindPFlag(key, f); err != nil {
			bindErr = errors.Wrapf(err, "bind flag --%s", f.Name)
		}
	})
	return bindErr
}

// definePathFlags registers --root, --source-root, --category, --cache-file, --recursive.
func definePathFlags(fs *pflag.FlagSet, d *Config) {
	fs.String("root", d.Root, "Project root; cache keys are relative to it")
	fs.String("source-root", d.SourceRoot, "Directory holding the category folders (relative to root)")
	fs.StringSlice("category", d.Categories, "Category directory name (repeatable)")
	fs.String("cache-file", d.CacheFile, "Fingerprint cache file (relative to root)")
	fs.Bool("recursive", d.Recursive, "Also discover sources in subdirectories")
}

// defineGeometryFlags registers --width, --height, --background.
func defineGeometryFlags(fs *pflag.FlagSet, d *Config) {
	fs.Int("width", d.Width, "Canonical output width in pixels")
	fs.Int("height", d.Height, "Canonical output height in pixels")
	fs.String("background", d.Background, "Opaque background color (#rgb or #rrggbb)")
}

// defineBehaviorFlags registers force, dry-run, watch, concurrency, timeout.
func defineBehaviorFlags(fs *pflag.FlagSet, d *Config) {
	fs.BoolP("force", "f", d.Force, "Bypass the cache and reconvert everything")
	fs.BoolP("dry-run", "d", d.DryRun, "Report what would be converted; write nothing")
	fs.BoolP("watch", "w", d.Watch, "Rebuild when sources change")
	fs.IntP("concurrency", "j", d.Concurrency, "Maximum conversions in flight")
	fs.Duration("timeout", d.TaskTimeout, "Per-file conversion deadline (0 = none)")
}

// defineDisplayFlags registers --color, --no-color, verbose, --log.
func defineDisplayFlags(fs *pflag.FlagSet, d *Config) {
	mode := d.ColorMode
	fs.Var(&colorModeValue{&mode}, "color", "Color output: auto | always | never")
	fs.Bool("no-color", false, "Disable colored logs")
	fs.BoolP("verbose", "v", d.Verbose, "Verbose output")
	fs.StringP("log", "l", d.LogFile, "Append logs to file")
}

// colorModeValue adapts ColorMode to pflag.Value so bad values fail at parse time.
type colorModeValue struct{ p *ColorMode }

func (c *colorModeValue) String() string { return string(*c.p) }
func (c *colorModeValue) Type() string   { return "mode" }
func (c *colorModeValue) Set(s string) error {
	switch ColorMode(strings.ToLower(s)) {
	case ColorAuto:
		*c.p = ColorAuto
	case ColorAlways:
		*c.p = ColorAlways
	case ColorNever:
		*c.p = ColorNever
	default:
		return errors.Newf("invalid color mode %q (use 'auto', 'always' or 'never')", s)
	}
	return nil
}
