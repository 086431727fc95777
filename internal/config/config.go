// Package config holds runtime configuration: defaults, config-file and
// environment loading, CLI flag binding, and validation.
package config

import (
	"fmt"
	"image/color"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Limits enforced by Validate.
const (
	MaxDimension   = 8192
	MaxConcurrency = 64
)

// DefaultConfigName is looked up in the project root when --config is not given.
const DefaultConfigName = "ogimage.toml"

// Config holds all runtime settings. It is populated by [DefaultConfig],
// overlaid by [Load] (config file, OGIMAGE_* env, CLI flags) and then passed
// by pointer to the packages that need it.
type Config struct {
	// Paths. SourceRoot and a relative CacheFile are resolved against Root.
	Root       string   `mapstructure:"root"`
	SourceRoot string   `mapstructure:"source_root"` // Default: "public/og".
	Categories []string `mapstructure:"categories"`  // Default: posts, guides, exercises, news, checklists.
	CacheFile  string   `mapstructure:"cache_file"`  // Default: ".og-cache.json".
	Recursive  bool     `mapstructure:"recursive"`

	// Canonical output geometry.
	Width      int    `mapstructure:"width"`      // Default: 1200.
	Height     int    `mapstructure:"height"`     // Default: 630.
	Background string `mapstructure:"background"` // Default: "#ffffff". Opaque only.

	// Execution.
	Concurrency int           `mapstructure:"concurrency"`  // Default: 5.
	TaskTimeout time.Duration `mapstructure:"task_timeout"` // 0 disables the per-file deadline.

	// Behavior flags.
	Force  bool `mapstructure:"force"` // Bypass the fingerprint cache.
	DryRun bool `mapstructure:"dry_run"`
	Watch  bool `mapstructure:"watch"`

	// Display and logging.
	Verbose   bool      `mapstructure:"verbose"`
	ColorMode ColorMode `mapstructure:"color"`
	NoColor   bool      `mapstructure:"no_color"` // Folded into ColorMode by Load.
	LogFile   string    `mapstructure:"log_file"`

	// ConfigFile is the file the settings were read from, if any.
	ConfigFile string `mapstructure:"-"`
}

// DefaultConfig returns a Config with the built-in defaults. Used as the base
// before [Load] applies file, environment and flag overrides.
func DefaultConfig() Config {
	return Config{
		Root:        ".",
		SourceRoot:  "public/og",
		Categories:  []string{"posts", "guides", "exercises", "news", "checklists"},
		CacheFile:   ".og-cache.json",
		Recursive:   false,
		Width:       1200,
		Height:      630,
		Background:  "#ffffff",
		Concurrency: 5,
		TaskTimeout: 0,
		Force:       false,
		DryRun:      false,
		Watch:       false,
		Verbose:     false,
		ColorMode:   ColorAuto,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks geometry, concurrency, colors and category names.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.Newf("invalid color mode %q (use 'auto', 'always' or 'never')", c.ColorMode)
	}

	if c.Width <= 0 || c.Height <= 0 {
		return errors.Newf("invalid canonical size %dx%d (width and height must be positive)", c.Width, c.Height)
	}
	if c.Width > MaxDimension || c.Height > MaxDimension {
		return errors.Newf("canonical size %dx%d exceeds %d pixels", c.Width, c.Height, MaxDimension)
	}
	if c.Concurrency < 1 || c.Concurrency > MaxConcurrency {
		return errors.Newf("invalid concurrency %d (use 1-%d)", c.Concurrency, MaxConcurrency)
	}
	if c.TaskTimeout < 0 {
		return errors.New("task timeout must not be negative")
	}
	if _, err := ParseHexColor(c.Background); err != nil {
		return err
	}
	if strings.TrimSpace(c.CacheFile) == "" {
		return errors.New("cache file path must not be empty")
	}
	if strings.TrimSpace(c.Root) == "" {
		return errors.New("root must not be empty")
	}
	return validateCategories(c.Categories)
}

// validateCategories requires at least one category, each a plain directory
// name so that cache keys stay relative to the source root.
func validateCategories(categories []string) error {
	if len(categories) == 0 {
		return errors.New("at least one category is required")
	}
	seen := make(map[string]bool, len(categories))
	for _, name := range categories {
		switch {
		case name == "", name == ".", name == "..":
			return errors.Newf("invalid category %q", name)
		case strings.ContainsAny(name, `/\`):
			return errors.Newf("category %q must be a single directory name", name)
		case seen[name]:
			return errors.Newf("duplicate category %q", name)
		}
		seen[name] = true
	}
	return nil
}

// BackgroundColor returns the parsed background. Call after Validate.
func (c *Config) BackgroundColor() color.NRGBA {
	bg, err := ParseHexColor(c.Background)
	if err != nil {
		return color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	return bg
}

// ParseHexColor parses "#rgb" or "#rrggbb" (leading '#' optional) into an
// opaque color. Alpha forms are rejected: outputs must have an opaque canvas.
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, errors.Newf("invalid background color %q (use #rgb or #rrggbb)", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, errors.Newf("invalid background color %q (use #rgb or #rrggbb)", s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// Paths are the absolute locations derived from Root.
type Paths struct {
	Root       string
	SourceRoot string
	CacheFile  string
}

// CategoryDir returns the absolute directory for a category name.
func (p Paths) CategoryDir(category string) string {
	return filepath.Join(p.SourceRoot, category)
}

// ResolvePaths joins SourceRoot and CacheFile onto the absolute root and
// ensures the source root does not escape it. Cache keys are computed
// relative to the root, so a source root outside it would produce "../" keys.
func (c *Config) ResolvePaths(rootAbs string) (Paths, error) {
	src := filepath.Join(rootAbs, c.SourceRoot)
	if filepath.IsAbs(c.SourceRoot) {
		src = filepath.Clean(c.SourceRoot)
	}
	if !within(rootAbs, src) {
		return Paths{}, errors.WithHint(
			errors.Newf("source root %s is outside the project root %s", src, rootAbs),
			"set source_root to a directory inside --root")
	}

	cachePath := c.CacheFile
	if !filepath.IsAbs(cachePath) {
		cachePath = filepath.Join(rootAbs, cachePath)
	}
	return Paths{Root: rootAbs, SourceRoot: src, CacheFile: filepath.Clean(cachePath)}, nil
}

// within reports whether path equals base or lives below it. Both must be clean.
func within(base, path string) bool {
	sep := string(filepath.Separator)
	return path == base || strings.HasPrefix(path+sep, base+sep)
}

// String renders a one-line summary for the batch header.
func (c *Config) String() string {
	timeout := "none"
	if c.TaskTimeout > 0 {
		timeout = c.TaskTimeout.String()
	}
	return fmt.Sprintf("%dx%d on %s, concurrency %d, timeout %s",
		c.Width, c.Height, c.Background, c.Concurrency, timeout)
}
