package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// BuildOutcomeLabel is the final status of a build.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeWarning  BuildOutcomeLabel = "warning"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// PageResultLabel is the result of rendering one page.
type PageResultLabel string

const (
	PageRendered PageResultLabel = "rendered"
	PageSkipped  PageResultLabel = "skipped"
	PageFailed   PageResultLabel = "failed"
)

// Recorder defines observability hooks for build, stage and page metrics.
// Implementations must tolerate being called from a single build goroutine
// and from the preview server concurrently.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	IncPageResult(result PageResultLabel)
	SetDocumentsDiscovered(n int)
	IncBrokenLinks(n int)
	SetLastBuildTimestamp(t time.Time)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)          {}
func (NoopRecorder) IncPageResult(PageResultLabel)              {}
func (NoopRecorder) SetDocumentsDiscovered(int)                 {}
func (NoopRecorder) IncBrokenLinks(int)                         {}
func (NoopRecorder) SetLastBuildTimestamp(time.Time)            {}
