package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/preview"
)

// ServeCmd builds the site, serves it and rebuilds when sources change.
type ServeCmd struct {
	Source   string        `short:"s" name:"source" help:"Override source_dir"`
	Output   string        `short:"o" name:"output" help:"Override output_dir"`
	Addr     string        `name:"addr" help:"Listen address (overrides serve.addr)"`
	Interval time.Duration `name:"interval" help:"Periodic rebuild interval (overrides serve.rebuild_interval, 0 keeps config)"`
	Debounce time.Duration `name:"debounce" default:"300ms" help:"Quiet window after the last file change"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	cfg, err = applyDirs(cfg, s.Source, s.Output)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunServe(ctx, cfg, s.options(cfg))
}

func (s *ServeCmd) options(cfg config.Config) preview.Options {
	opts := preview.Options{
		Addr:      cfg.Serve.Addr,
		SourceDir: cfg.SourceDir,
		OutputDir: cfg.OutputDir,
		Debounce:  s.Debounce,
		Interval:  cfg.Serve.Interval(),
		// The history database and metrics textfile may live inside the
		// source tree; each build writes them.
		Ignore: []string{cfg.History.Path, cfg.Metrics.Textfile},
	}
	if s.Addr != "" {
		opts.Addr = s.Addr
	}
	if s.Interval > 0 {
		opts.Interval = s.Interval
	}
	if opts.Debounce <= 0 {
		opts.Debounce = config.DefaultRebuildDebounce
	}
	return opts
}

// RunServe runs the preview server until ctx is done. Build failures are
// logged and reported on /healthz; they do not stop the server.
func RunServe(ctx context.Context, cfg config.Config, opts preview.Options) error {
	runner := newBuildRunner(cfg)
	defer func() {
		if err := runner.Close(); err != nil {
			slog.Warn("Failed to close build side channels", logfields.Error(err))
		}
	}()

	opts.Registry = runner.Registry()
	opts.Build = func(ctx context.Context) error {
		report, err := runner.Build(ctx)
		if err != nil {
			return err
		}
		slog.Info("Preview updated", logfields.BuildID(report.BuildID), logfields.Outcome(string(report.Outcome)),
			logfields.Count(report.Rendered), logfields.Duration(report.Duration()))
		return nil
	}

	if err := preview.Run(ctx, opts); err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "preview server failed").
			WithContext("addr", opts.Addr).
			Build()
	}
	return nil
}
