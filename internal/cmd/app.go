package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dendrascience/syncfs/config"
	"github.com/dendrascience/syncfs/hfs"
	"github.com/dendrascience/syncfs/proxy"
	"github.com/dendrascience/syncfs/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// errNotFound makes load exit non-zero for an absent record.
var errNotFound = errors.New("record not found")

// backend is served by both a direct store and a proxy worker.
type backend interface {
	store.Storage
	store.Lister
}

// app holds the settings shared by every subcommand. Flags land in
// overrides and are applied over the config file in setup.
type app struct {
	configPath string
	overrides  config.Config

	cfg    config.Config
	logger zerolog.Logger
}

func (a *app) bindFlags(cmd *cobra.Command) {
	def := config.Default()
	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	flags.StringVar(&a.overrides.BaseDir, "base", def.BaseDir, "Directory holding the root container")
	flags.StringVar(&a.overrides.RootName, "root", def.RootName, "Name of the root container")
	flags.BoolVar(&a.overrides.Worker, "worker", def.Worker, "Run store operations on a proxy worker")
	flags.StringVar(&a.overrides.Log.Level, "log-level", def.Log.Level, "Log level (trace, debug, info, warn, error, disabled)")
	flags.StringVar(&a.overrides.Log.Format, "log-format", def.Log.Format, "Log format (console, json)")
}

// setup resolves the configuration for cmd: defaults, then the config file,
// then any flag given on the command line.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("base") {
		cfg.BaseDir = a.overrides.BaseDir
	}
	if flags.Changed("root") {
		cfg.RootName = a.overrides.RootName
	}
	if flags.Changed("worker") {
		cfg.Worker = a.overrides.Worker
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.overrides.Log.Level
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.overrides.Log.Format
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func newLogger(lc config.LogConfig, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	if lc.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// open returns the configured backend and a function releasing it.
func (a *app) open(ctx context.Context) (backend, func() error, error) {
	fsys := hfs.NewOS(a.cfg.BaseDir)
	opts := []store.Option{
		store.WithRootName(a.cfg.RootName),
		store.WithLogger(a.logger),
		store.WithReadConcurrency(a.cfg.ReadConcurrency),
	}
	if a.cfg.Worker {
		p := proxy.Open(fsys, opts, proxy.WithLogger(a.logger))
		return p, p.Close, nil
	}
	s, err := store.Open(ctx, fsys, opts...)
	if err != nil {
		return nil, nil, err
	}
	return s, func() error { return nil }, nil
}

// withBackend opens the backend, runs fn and releases it.
func (a *app) withBackend(ctx context.Context, fn func(backend) error) error {
	b, release, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(b)
}

// rootDir is the on-disk directory of the root container.
func (a *app) rootDir() (string, error) {
	name, err := hfs.EscapeName(a.cfg.RootName)
	if err != nil {
		return "", err
	}
	return filepath.Join(a.cfg.BaseDir, name), nil
}
