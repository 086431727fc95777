package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when reading environment overrides
// (e.g. OGIMAGE_CONCURRENCY=8).
const EnvPrefix = "OGIMAGE"

// NewViper returns a viper instance seeded with [DefaultConfig] values and
// environment binding. Flags are bound separately by [BindFlags].
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers every Config key so that AutomaticEnv and Unmarshal
// see it even when no file or flag provides a value.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("root", d.Root)
	v.SetDefault("source_root", d.SourceRoot)
	v.SetDefault("categories", d.Categories)
	v.SetDefault("cache_file", d.CacheFile)
	v.SetDefault("recursive", d.Recursive)
	v.SetDefault("width", d.Width)
	v.SetDefault("height", d.Height)
	v.SetDefault("background", d.Background)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("task_timeout", d.TaskTimeout)
	v.SetDefault("force", d.Force)
	v.SetDefault("dry_run", d.DryRun)
	v.SetDefault("watch", d.Watch)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("color", string(d.ColorMode))
	v.SetDefault("no_color", false)
	v.SetDefault("log_file", "")
}

// Load reads configuration in precedence order: defaults, config file,
// OGIMAGE_* environment, then flags bound to v. When configFile is empty,
// ogimage.toml in the configured root is used if present.
func Load(v *viper.Viper, configFile string) (Config, error) {
	path := configFile
	if path == "" {
		candidate := filepath.Join(v.GetString("root"), DefaultConfigName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	cfg.ConfigFile = path
	cfg.Root = NormalizeDirArg(cfg.Root)
	cfg.ColorMode = ColorMode(strings.ToLower(string(cfg.ColorMode)))
	if cfg.NoColor {
		cfg.ColorMode = ColorNever
	}
	return cfg, nil
}

// fileView is the on-disk shape of ogimage.toml.
type fileView struct {
	Root        string   `toml:"root"`
	SourceRoot  string   `toml:"source_root"`
	Categories  []string `toml:"categories"`
	CacheFile   string   `toml:"cache_file"`
	Recursive   bool     `toml:"recursive"`
	Width       int      `toml:"width"`
	Height      int      `toml:"height"`
	Background  string   `toml:"background"`
	Concurrency int      `toml:"concurrency"`
	TaskTimeout string   `toml:"task_timeout"`
	Color       string   `toml:"color"`
	LogFile     string   `toml:"log_file,omitempty"`
}

// MarshalTOML renders the effective settings as an ogimage.toml document.
// Per-invocation switches (force, dry-run, watch, verbose) are omitted.
func (c *Config) MarshalTOML() ([]byte, error) {
	view := fileView{
		Root:        c.Root,
		SourceRoot:  c.SourceRoot,
		Categories:  c.Categories,
		CacheFile:   c.CacheFile,
		Recursive:   c.Recursive,
		Width:       c.Width,
		Height:      c.Height,
		Background:  c.Background,
		Concurrency: c.Concurrency,
		TaskTimeout: c.TaskTimeout.String(),
		Color:       string(c.ColorMode),
		LogFile:     c.LogFile,
	}
	out, err := toml.Marshal(view)
	if err != nil {
		return nil, errors.Wrap(err, "encode config")
	}
	return out, nil
}
