package preview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// Options configures Run.
type Options struct {
	Addr      string
	SourceDir string
	OutputDir string
	// Ignore lists files the build itself writes below SourceDir, such as
	// the history database and the metrics textfile.
	Ignore []string
	// Debounce is the quiet window after the last file change.
	Debounce time.Duration
	// Interval enables periodic rebuilds when > 0.
	Interval time.Duration
	Registry *prom.Registry
	Build    BuildFunc
	// Ready, when set, receives the bound address once the server listens.
	Ready func(addr string)
}

// Run performs an initial build, then serves the site and rebuilds on change
// until ctx is done or the server fails. A failed initial build is logged and
// the server still starts so the next change can fix it.
func Run(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watcher, err := NewWatcher(opts.SourceDir, opts.OutputDir, opts.Ignore...)
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	rb := NewRebuilder(opts.Build)

	var sched *Scheduler
	if opts.Interval > 0 {
		sched, err = NewScheduler(opts.Interval, rb.Request)
		if err != nil {
			return err
		}
		defer func() {
			if err := sched.Stop(); err != nil {
				slog.Warn("Scheduler shutdown error", logfields.Error(err))
			}
		}()
	}

	if err := rb.BuildNow(ctx); err != nil {
		slog.Error("Initial build failed", logfields.Error(err))
	}

	srv, err := Listen(opts.Addr, NewHandler(opts.OutputDir, opts.Registry, rb.Status))
	if err != nil {
		return fmt.Errorf("failed to start preview server: %w", err)
	}

	debouncer := NewDebouncer(opts.Debounce, rb.Request)
	defer debouncer.Stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		rb.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		watcher.Run(ctx, debouncer.Trigger)
	}()
	if sched != nil {
		sched.Start()
	}

	slog.Info("Preview server listening", logfields.Addr(srv.Addr()), logfields.Output(opts.OutputDir))
	if opts.Ready != nil {
		opts.Ready(srv.Addr())
	}

	err = srv.Serve(ctx)
	slog.Info("Shutting down preview server")
	cancel()
	wg.Wait()
	return err
}
