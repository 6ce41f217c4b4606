package site

import (
	"fmt"
	"time"
)

// Outcome is the typed enumeration of final build result states.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// StageTiming records how one stage went.
type StageTiming struct {
	Stage    StageName     `json:"stage"`
	Duration time.Duration `json:"duration"`
	Result   StageResult   `json:"result"`
}

// Report captures what a build did. It is returned from every Build call,
// including failed ones.
type Report struct {
	BuildID    string        `json:"build_id"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	SourceDir  string        `json:"source_dir"`
	OutputDir  string        `json:"output_dir"`
	Discovered int           `json:"discovered"`
	Rendered   int           `json:"rendered"`
	Skipped    int           `json:"skipped"`
	Stages     []StageTiming `json:"stages"`
	Warnings   []string      `json:"warnings,omitempty"`
	Error      string        `json:"error,omitempty"`
	// BrokenLinks counts findings of the verify_links stage.
	BrokenLinks int     `json:"broken_links"`
	DocsHash    string  `json:"docs_hash,omitempty"`
	Outcome     Outcome `json:"outcome"`
}

func newReport(buildID string, start time.Time, sourceDir, outputDir string) *Report {
	return &Report{
		BuildID:   buildID,
		Start:     start,
		SourceDir: sourceDir,
		OutputDir: outputDir,
	}
}

// AddWarning records a non-fatal issue.
func (r *Report) AddWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Duration is the wall time of the build.
func (r *Report) Duration() time.Duration {
	if r.End.IsZero() {
		return 0
	}
	return r.End.Sub(r.Start)
}

// StageDuration returns the recorded duration of stage, zero if it did not run.
func (r *Report) StageDuration(stage StageName) time.Duration {
	for _, s := range r.Stages {
		if s.Stage == stage {
			return s.Duration
		}
	}
	return 0
}

// finish sets the end time and derives the outcome from err and warnings.
func (r *Report) finish(end time.Time, err error, canceled bool) {
	r.End = end
	switch {
	case canceled:
		r.Outcome = OutcomeCanceled
	case err != nil:
		r.Outcome = OutcomeFailed
	case len(r.Warnings) > 0:
		r.Outcome = OutcomeWarning
	default:
		r.Outcome = OutcomeSuccess
	}
	if err != nil {
		r.Error = err.Error()
	}
}

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("discovered=%d rendered=%d skipped=%d warnings=%d broken_links=%d duration=%s outcome=%s",
		r.Discovered, r.Rendered, r.Skipped, len(r.Warnings), r.BrokenLinks,
		r.Duration().Truncate(time.Millisecond), r.Outcome)
}
