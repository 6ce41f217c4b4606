package eventstore

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/site"
	"git.home.luguber.info/inful/docsite/internal/version"
)

// BuildRecorder is a site.BuildObserver that appends build lifecycle events
// to a Store. Append failures are logged and collected; they never affect
// the build.
type BuildRecorder struct {
	site.NoopObserver

	ctx   context.Context
	store Store
	now   func() time.Time

	mu   sync.Mutex
	errs []error
}

// NewBuildRecorder records into store. ctx bounds every append.
func NewBuildRecorder(ctx context.Context, store Store) *BuildRecorder {
	return &BuildRecorder{ctx: ctx, store: store, now: time.Now}
}

// Err joins every append failure seen so far.
func (r *BuildRecorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return stdErrors.Join(r.errs...)
}

func (r *BuildRecorder) OnBuildStart(report *site.Report) {
	r.append(report.BuildID, func() (Event, error) {
		return NewBuildStarted(report.BuildID, report.Start, BuildStartedPayload{
			SourceDir: report.SourceDir,
			OutputDir: report.OutputDir,
			Version:   version.Version,
		})
	})
}

func (r *BuildRecorder) OnPage(report *site.Report, page site.PageResult) {
	payload := PagePayload{
		Source:      page.Source,
		Output:      page.Output,
		Title:       page.Title,
		Fingerprint: page.Fingerprint,
		Skipped:     page.Status == site.PageStatusSkipped,
		Error:       page.Error,
	}
	r.append(report.BuildID, func() (Event, error) {
		if page.Status == site.PageStatusRendered {
			return NewPageRendered(report.BuildID, r.now(), payload)
		}
		return NewPageFailed(report.BuildID, r.now(), payload)
	})
}

func (r *BuildRecorder) OnBuildComplete(report *site.Report) {
	r.append(report.BuildID, func() (Event, error) {
		return NewBuildCompleted(report.BuildID, report.End, BuildCompletedPayload{
			Outcome:     string(report.Outcome),
			DurationMS:  report.Duration().Milliseconds(),
			Discovered:  report.Discovered,
			Rendered:    report.Rendered,
			Skipped:     report.Skipped,
			Warnings:    len(report.Warnings),
			BrokenLinks: report.BrokenLinks,
			DocsHash:    report.DocsHash,
			Error:       report.Error,
		})
	})
}

func (r *BuildRecorder) append(buildID string, build func() (Event, error)) {
	event, err := build()
	if err == nil {
		err = r.store.Append(r.ctx, event)
	}
	if err == nil {
		return
	}
	slog.Warn("Failed to record build history", logfields.BuildID(buildID), logfields.Error(err))
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}
