package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/backmassage/ogimage/internal/check"
	"github.com/backmassage/ogimage/internal/config"
	"github.com/backmassage/ogimage/internal/display"
	"github.com/backmassage/ogimage/internal/logging"
	"github.com/backmassage/ogimage/internal/pipeline"
	"github.com/backmassage/ogimage/internal/watch"
)

var errInterrupted = errors.New("interrupted")

// app holds per-invocation state shared by the commands.
type app struct {
	v          *viper.Viper
	configFile string
}

func newApp() *app {
	return &app{v: config.NewViper()}
}

// env is a validated configuration with resolved paths and a live logger.
type env struct {
	cfg   config.Config
	paths config.Paths
	log   *logging.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ogimage",
		Short: "Render social-preview SVGs to canonical PNGs",
		Long: `ogimage converts the SVG sources under each category directory into PNGs
of one exact size, next to their sources. A fingerprint cache skips sources
whose content has not changed since their last successful conversion.

Examples:
  ogimage                      # Convert changed sources
  ogimage --force              # Reconvert everything
  ogimage --watch              # Rebuild on change
  ogimage check                # Verify outputs without converting
  ogimage config > ogimage.toml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.build(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "Config file (default: <root>/"+config.DefaultConfigName+" if present)")
	if err := config.BindFlags(pf, a.v); err != nil {
		// Flag definitions are static; a bind failure is a programming error.
		panic(err)
	}

	root.AddCommand(a.buildCmd(), a.checkCmd(), a.configCmd(), versionCmd())
	return root
}

// load reads and validates the configuration without side effects.
func (a *app) load() (config.Config, error) {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// setup loads config, resolves the root and opens the logger. Callers must
// close env.log.
func (a *app) setup() (*env, error) {
	cfg, err := a.load()
	if err != nil {
		return nil, err
	}
	rootAbs, err := absPath(cfg.Root)
	if err != nil {
		return nil, errors.WithHint(errors.Wrapf(err, "root not found: %s", cfg.Root),
			"pass --root pointing at the project directory")
	}
	paths, err := cfg.ResolvePaths(rootAbs)
	if err != nil {
		return nil, err
	}
	log, err := logging.NewLogger(&cfg)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, paths: paths, log: log}, nil
}

func (a *app) build(cmd *cobra.Command) error {
	e, err := a.setup()
	if err != nil {
		return err
	}
	defer e.log.Close()

	display.PrintBanner(cmd.OutOrStdout())
	e.log.Info("=== ogimage v%s ===", version)
	e.log.Info("Root:    %s", e.paths.Root)
	e.log.Info("Sources: %s", e.paths.SourceRoot)
	e.log.Info("Cache:   %s", e.paths.CacheFile)
	if e.cfg.ConfigFile != "" {
		e.log.Debug("Config:  %s", e.cfg.ConfigFile)
	}

	ctx := cmd.Context()
	stats, err := pipeline.Run(ctx, &e.cfg, e.paths, e.log, pipeline.Options{})
	if err != nil {
		return err
	}
	if e.cfg.Watch {
		return watchLoop(ctx, e)
	}
	if stats.Interrupted() {
		return errInterrupted
	}
	return nil
}

// watchLoop rebuilds on source changes until ctx is cancelled. --force only
// applies to the initial build.
func watchLoop(ctx context.Context, e *env) error {
	cfg := e.cfg
	cfg.Force = false

	var dirs []string
	for _, d := range pipeline.CategoryDirs(&cfg, e.paths) {
		dirs = append(dirs, d.Path)
	}
	w, err := watch.New(dirs, cfg.Recursive, e.log.Zap())
	if err != nil {
		return err
	}
	defer w.Close()

	e.log.Info("Watching %d categories (Ctrl-C to stop)", len(dirs))
	err = w.Run(ctx, func(ctx context.Context) {
		if _, err := pipeline.Run(ctx, &cfg, e.paths, e.log, pipeline.Options{}); err != nil {
			e.log.Error("Rebuild failed: %v", err)
		}
	})
	e.log.Info("Stopped watching")
	return err
}

// buildCmd is the explicit spelling of the root command.
func (a *app) buildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Convert changed sources (same as running ogimage without a command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.build(cmd)
		},
	}
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify every source has a current, canonical-size output",
		Long: `check converts nothing and writes nothing. It exits non-zero when any
output is missing, truncated, not the configured size, or older than its
source according to the fingerprint cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.setup()
			if err != nil {
				return err
			}
			defer e.log.Close()
			return check.RunCheck(&e.cfg, e.paths, e.log)
		},
	}
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			out, err := cfg.MarshalTOML()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if cfg.ConfigFile != "" {
				fmt.Fprintf(w, "# loaded from %s\n", cfg.ConfigFile)
			}
			_, err = w.Write(out)
			return err
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ogimage %s (commit %s, %s %s/%s)\n",
				version, commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

// absPath returns the absolute path with symlinks resolved, so cache keys do
// not depend on how the root was spelled.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return "", errors.Newf("%s is not a directory", resolved)
	}
	return resolved, nil
}
