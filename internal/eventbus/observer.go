package eventbus

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/site"
)

// BuildPublisher is a site.BuildObserver that publishes build start, page
// failures and completion. Publish failures are logged and collected; they
// never affect the build.
type BuildPublisher struct {
	site.NoopObserver

	ctx context.Context
	pub Publisher

	mu   sync.Mutex
	errs []error
}

// NewBuildPublisher publishes through pub. ctx bounds every publish.
func NewBuildPublisher(ctx context.Context, pub Publisher) *BuildPublisher {
	return &BuildPublisher{ctx: ctx, pub: pub}
}

// Err joins every publish failure seen so far.
func (b *BuildPublisher) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return stdErrors.Join(b.errs...)
}

func (b *BuildPublisher) OnBuildStart(report *site.Report) {
	b.publish(Message{
		Kind:      KindStarted,
		BuildID:   report.BuildID,
		Timestamp: report.Start,
		SourceDir: report.SourceDir,
		OutputDir: report.OutputDir,
	})
}

func (b *BuildPublisher) OnPage(report *site.Report, page site.PageResult) {
	if page.Status == site.PageStatusRendered {
		return
	}
	b.publish(Message{
		Kind:      KindPageFailed,
		BuildID:   report.BuildID,
		Timestamp: report.Start,
		Page:      page.Source,
		Error:     page.Error,
	})
}

func (b *BuildPublisher) OnBuildComplete(report *site.Report) {
	b.publish(Message{
		Kind:        KindCompleted,
		BuildID:     report.BuildID,
		Timestamp:   report.End,
		SourceDir:   report.SourceDir,
		OutputDir:   report.OutputDir,
		Error:       report.Error,
		Outcome:     string(report.Outcome),
		DurationMS:  report.Duration().Milliseconds(),
		Discovered:  report.Discovered,
		Rendered:    report.Rendered,
		Skipped:     report.Skipped,
		Warnings:    len(report.Warnings),
		BrokenLinks: report.BrokenLinks,
		DocsHash:    report.DocsHash,
	})
}

func (b *BuildPublisher) publish(msg Message) {
	if err := b.pub.Publish(b.ctx, msg); err != nil {
		slog.Warn("Failed to publish build event", logfields.BuildID(msg.BuildID), slog.String("kind", string(msg.Kind)), logfields.Error(err))
		b.mu.Lock()
		b.errs = append(b.errs, err)
		b.mu.Unlock()
	}
}
