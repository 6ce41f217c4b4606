package eventstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// StatusRunning marks a build with a start event and no completion yet.
const StatusRunning = "running"

// BuildSummary is a read model of one build.
type BuildSummary struct {
	BuildID     string        `json:"build_id"`
	Status      string        `json:"status"` // running or the build outcome
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	SourceDir   string        `json:"source_dir,omitempty"`
	Discovered  int           `json:"discovered"`
	Rendered    int           `json:"rendered"`
	Skipped     int           `json:"skipped"`
	Warnings    int           `json:"warnings"`
	BrokenLinks int           `json:"broken_links"`
	FailedPages []string      `json:"failed_pages,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// BuildHistoryProjection maintains an in-memory view of build history,
// reconstructed from the events in a Store.
type BuildHistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	builds  map[string]*BuildSummary
	maxSize int
}

// NewBuildHistoryProjection creates a projection backed by store keeping at
// most maxHistorySize builds (100 when <= 0).
func NewBuildHistoryProjection(store Store, maxHistorySize int) *BuildHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &BuildHistoryProjection{
		store:   store,
		builds:  make(map[string]*BuildSummary),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from all events in the store.
func (p *BuildHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Unix(0, 0), time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.builds = make(map[string]*BuildSummary)
	for _, event := range events {
		p.applyEventLocked(event)
	}
	p.pruneLocked()
	return nil
}

// Apply processes a single event.
func (p *BuildHistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
	p.pruneLocked()
}

func (p *BuildHistoryProjection) applyEventLocked(event Event) {
	buildID := event.BuildID()
	if buildID == "" {
		return
	}
	summary, exists := p.builds[buildID]
	if !exists {
		summary = &BuildSummary{BuildID: buildID, Status: StatusRunning, StartedAt: event.Timestamp()}
		p.builds[buildID] = summary
	}

	switch event.Type() {
	case TypeBuildStarted:
		summary.StartedAt = event.Timestamp()
		var payload BuildStartedPayload
		if err := Decode(event, &payload); err == nil {
			summary.SourceDir = payload.SourceDir
		}

	case TypePageFailed:
		var payload PagePayload
		if err := Decode(event, &payload); err == nil {
			summary.FailedPages = append(summary.FailedPages, payload.Source)
		}

	case TypeBuildCompleted:
		done := event.Timestamp()
		summary.CompletedAt = &done
		var payload BuildCompletedPayload
		if err := Decode(event, &payload); err == nil {
			summary.Status = payload.Outcome
			summary.Duration = time.Duration(payload.DurationMS) * time.Millisecond
			summary.Discovered = payload.Discovered
			summary.Rendered = payload.Rendered
			summary.Skipped = payload.Skipped
			summary.Warnings = payload.Warnings
			summary.BrokenLinks = payload.BrokenLinks
			summary.Error = payload.Error
		}
	}
}

// pruneLocked drops the oldest builds beyond maxSize. Caller holds p.mu.
func (p *BuildHistoryProjection) pruneLocked() {
	if len(p.builds) <= p.maxSize {
		return
	}
	for _, s := range p.sortedLocked()[p.maxSize:] {
		delete(p.builds, s.BuildID)
	}
}

// sortedLocked returns summaries newest first, ties broken by build ID.
func (p *BuildHistoryProjection) sortedLocked() []*BuildSummary {
	out := make([]*BuildSummary, 0, len(p.builds))
	for _, s := range p.builds {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].BuildID < out[j].BuildID
	})
	return out
}

// GetHistory returns copies of up to limit summaries, newest first. A limit
// <= 0 returns everything retained.
func (p *BuildHistoryProjection) GetHistory(limit int) []BuildSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	sorted := p.sortedLocked()
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]BuildSummary, 0, len(sorted))
	for _, s := range sorted {
		out = append(out, *s)
	}
	return out
}

// GetBuild returns the summary for a specific build.
func (p *BuildHistoryProjection) GetBuild(buildID string) (BuildSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s, ok := p.builds[buildID]
	if !ok {
		return BuildSummary{}, false
	}
	return *s, true
}
