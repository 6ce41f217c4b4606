package commands

import (
	"context"
	stdErrors "errors"
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/eventbus"
	"git.home.luguber.info/inful/docsite/internal/eventstore"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/site"
)

// buildRunner runs builds with the configured side channels: Prometheus
// metrics, the SQLite build history and NATS build events. Side-channel
// failures are logged as warnings and never change a build's outcome.
type buildRunner struct {
	cfg       config.Config
	recorder  *metrics.PrometheusRecorder
	store     eventstore.Store
	publisher eventbus.Publisher
	extra     []site.Option
}

func newBuildRunner(cfg config.Config, extra ...site.Option) *buildRunner {
	r := &buildRunner{
		cfg:      cfg,
		recorder: metrics.NewPrometheusRecorder(prom.NewRegistry()),
		extra:    extra,
	}

	if cfg.History.Enabled() {
		store, err := eventstore.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			slog.Warn("Build history disabled", logfields.Path(cfg.History.Path), logfields.Error(err))
		} else {
			r.store = store
		}
	}

	if cfg.Events.Enabled() {
		pub, err := eventbus.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject, cfg.Events.EventsTimeout())
		if err != nil {
			slog.Warn("Build events disabled", logfields.URL(cfg.Events.NATSURL), logfields.Error(err))
		} else {
			r.publisher = pub
		}
	}
	return r
}

// Registry exposes the metrics registry for the preview server.
func (r *buildRunner) Registry() *prom.Registry { return r.recorder.Registry() }

// Build constructs a fresh builder and runs one build. The builder is
// recreated every time so layout and landing-page overrides are re-read.
func (r *buildRunner) Build(ctx context.Context) (*site.Report, error) {
	// Side channels outlive a canceled build so its outcome is still recorded.
	sideCtx := context.WithoutCancel(ctx)

	opts := append([]site.Option{site.WithRecorder(r.recorder)}, r.extra...)
	var recorder *eventstore.BuildRecorder
	if r.store != nil {
		recorder = eventstore.NewBuildRecorder(sideCtx, r.store)
		opts = append(opts, site.WithObserver(recorder))
	}
	var publisher *eventbus.BuildPublisher
	if r.publisher != nil {
		publisher = eventbus.NewBuildPublisher(sideCtx, r.publisher)
		opts = append(opts, site.WithObserver(publisher))
	}

	builder, err := site.NewBuilder(r.cfg, opts...)
	if err != nil {
		return nil, err
	}
	report, buildErr := builder.Build(ctx)

	if recorder != nil {
		if err := recorder.Err(); err != nil {
			slog.Warn("Failed to record build history", logfields.Error(err))
		}
	}
	if publisher != nil {
		if err := publisher.Err(); err != nil {
			slog.Warn("Failed to publish build events", logfields.Error(err))
		}
	}
	if path := r.cfg.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path, r.recorder.Registry()); err != nil {
			slog.Warn("Failed to write metrics textfile", logfields.Path(path), logfields.Error(err))
		}
	}
	return report, buildErr
}

// Close releases the history store and the event bus connection.
func (r *buildRunner) Close() error {
	var errs []error
	if r.store != nil {
		errs = append(errs, r.store.Close())
	}
	if r.publisher != nil {
		errs = append(errs, r.publisher.Close())
	}
	return stdErrors.Join(errs...)
}
