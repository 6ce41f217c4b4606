package site

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/metrics"
)

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stage names, in execution order.
const (
	StagePrepareOutput StageName = "prepare_output"
	StageWriteAssets   StageName = "write_assets"
	StageDiscoverDocs  StageName = "discover_docs"
	StageRenderPages   StageName = "render_pages"
	StageWriteIndex    StageName = "write_index"
	StageVerifyLinks   StageName = "verify_links"
)

// StageResult is the result category of one stage.
type StageResult string

const (
	StageResultSuccess  StageResult = "success"
	StageResultWarning  StageResult = "warning"
	StageResultFatal    StageResult = "fatal"
	StageResultCanceled StageResult = "canceled"
)

func (r StageResult) metricsLabel() metrics.ResultLabel {
	switch r {
	case StageResultWarning:
		return metrics.ResultWarning
	case StageResultFatal:
		return metrics.ResultFatal
	case StageResultCanceled:
		return metrics.ResultCanceled
	default:
		return metrics.ResultSuccess
	}
}

// StageError ties a failure to the stage it happened in. The cause is
// normally a ClassifiedError, reachable through Unwrap.
type StageError struct {
	Stage    StageName
	Canceled bool
	Err      error
}

func (e *StageError) Error() string {
	if e.Canceled {
		return fmt.Sprintf("canceled stage %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("fatal stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

type stageFunc func(ctx context.Context, bs *buildState) error

type stageDef struct {
	name StageName
	fn   stageFunc
}

// runStages executes stages in order, recording timing and stopping on the
// first error.
func runStages(ctx context.Context, bs *buildState, stages []stageDef) error {
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			se := &StageError{Stage: st.name, Canceled: true, Err: canceledError(err)}
			bs.recordStage(st.name, 0, StageResultCanceled)
			return se
		}

		bs.observer.OnStageStart(st.name)
		warningsBefore := len(bs.report.Warnings)

		t0 := time.Now()
		err := st.fn(ctx, bs)
		dur := time.Since(t0)

		result := StageResultSuccess
		switch {
		case err != nil && ctx.Err() != nil:
			result = StageResultCanceled
		case err != nil:
			result = StageResultFatal
		case len(bs.report.Warnings) > warningsBefore:
			result = StageResultWarning
		}
		bs.recordStage(st.name, dur, result)

		slog.Debug("Stage finished",
			logfields.Stage(string(st.name)),
			logfields.Duration(dur),
			slog.String("result", string(result)))

		if err != nil {
			if result == StageResultCanceled {
				return &StageError{Stage: st.name, Canceled: true, Err: canceledError(ctx.Err())}
			}
			return &StageError{Stage: st.name, Err: err}
		}
	}
	return nil
}

func canceledError(cause error) error {
	return errors.WrapError(cause, errors.CategoryRuntime, "build canceled").Build()
}
