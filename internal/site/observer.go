package site

import (
	"time"

	"git.home.luguber.info/inful/docsite/internal/metrics"
)

// PageStatus is the result of processing one document.
type PageStatus string

const (
	PageStatusRendered PageStatus = "rendered"
	PageStatusSkipped  PageStatus = "skipped"
	PageStatusFailed   PageStatus = "failed"
)

// PageResult describes one processed document.
type PageResult struct {
	Source      string     `json:"source"`
	Output      string     `json:"output,omitempty"`
	Title       string     `json:"title,omitempty"`
	Fingerprint string     `json:"fingerprint,omitempty"`
	Status      PageStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
}

// BuildObserver receives callbacks around the build lifecycle.
type BuildObserver interface {
	OnBuildStart(report *Report)
	OnStageStart(stage StageName)
	OnStageComplete(stage StageName, duration time.Duration, result StageResult)
	OnPage(report *Report, page PageResult)
	OnBuildComplete(report *Report)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnBuildStart(*Report)                                  {}
func (NoopObserver) OnStageStart(StageName)                                {}
func (NoopObserver) OnStageComplete(StageName, time.Duration, StageResult) {}
func (NoopObserver) OnPage(*Report, PageResult)                            {}
func (NoopObserver) OnBuildComplete(*Report)                               {}

// RecorderObserver adapts metrics.Recorder into a BuildObserver.
type RecorderObserver struct{ Recorder metrics.Recorder }

func (r RecorderObserver) OnBuildStart(*Report)   {}
func (r RecorderObserver) OnStageStart(StageName) {}

func (r RecorderObserver) OnStageComplete(stage StageName, d time.Duration, result StageResult) {
	r.Recorder.ObserveStageDuration(string(stage), d)
	r.Recorder.IncStageResult(string(stage), result.metricsLabel())
}

func (r RecorderObserver) OnPage(_ *Report, page PageResult) {
	switch page.Status {
	case PageStatusRendered:
		r.Recorder.IncPageResult(metrics.PageRendered)
	case PageStatusSkipped:
		r.Recorder.IncPageResult(metrics.PageSkipped)
	default:
		r.Recorder.IncPageResult(metrics.PageFailed)
	}
}

func (r RecorderObserver) OnBuildComplete(report *Report) {
	r.Recorder.ObserveBuildDuration(report.Duration())
	r.Recorder.IncBuildOutcome(metrics.BuildOutcomeLabel(report.Outcome))
	r.Recorder.SetDocumentsDiscovered(report.Discovered)
	r.Recorder.IncBrokenLinks(report.BrokenLinks)
	r.Recorder.SetLastBuildTimestamp(report.End)
}

// MultiObserver fans callbacks out in order.
type MultiObserver []BuildObserver

func (m MultiObserver) OnBuildStart(report *Report) {
	for _, o := range m {
		o.OnBuildStart(report)
	}
}

func (m MultiObserver) OnStageStart(stage StageName) {
	for _, o := range m {
		o.OnStageStart(stage)
	}
}

func (m MultiObserver) OnStageComplete(stage StageName, d time.Duration, result StageResult) {
	for _, o := range m {
		o.OnStageComplete(stage, d, result)
	}
}

func (m MultiObserver) OnPage(report *Report, page PageResult) {
	for _, o := range m {
		o.OnPage(report, page)
	}
}

func (m MultiObserver) OnBuildComplete(report *Report) {
	for _, o := range m {
		o.OnBuildComplete(report)
	}
}
