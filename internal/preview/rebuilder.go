package preview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// BuildFunc runs one build.
type BuildFunc func(ctx context.Context) error

// Rebuilder serializes build requests. Request never blocks: a request made
// while a build is running schedules exactly one follow-up build.
type Rebuilder struct {
	build BuildFunc
	req   chan struct{}

	mu      sync.Mutex
	lastErr error
	builds  int
	lastAt  time.Time
}

// NewRebuilder wraps build.
func NewRebuilder(build BuildFunc) *Rebuilder {
	return &Rebuilder{build: build, req: make(chan struct{}, 1)}
}

// Request asks for a build.
func (r *Rebuilder) Request() {
	select {
	case r.req <- struct{}{}:
	default:
	}
}

// Run processes requests until ctx is done.
func (r *Rebuilder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.req:
			r.runOnce(ctx)
		}
	}
}

// BuildNow runs a build synchronously, outside the request queue. It is used
// for the initial build before the server starts.
func (r *Rebuilder) BuildNow(ctx context.Context) error {
	return r.runOnce(ctx)
}

func (r *Rebuilder) runOnce(ctx context.Context) error {
	t0 := time.Now()
	err := r.build(ctx)

	r.mu.Lock()
	r.lastErr = err
	r.builds++
	r.lastAt = time.Now()
	r.mu.Unlock()

	if err != nil {
		slog.Warn("Rebuild failed", logfields.Error(err), logfields.Duration(time.Since(t0)))
	} else {
		slog.Info("Site rebuilt", logfields.Duration(time.Since(t0)))
	}
	return err
}

// Status describes the most recent build.
type Status struct {
	Builds    int       `json:"builds"`
	LastBuild time.Time `json:"last_build,omitzero"`
	Healthy   bool      `json:"healthy"`
	LastError string    `json:"last_error,omitempty"`
}

// Status returns a snapshot of the build state.
func (r *Rebuilder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Status{Builds: r.builds, LastBuild: r.lastAt, Healthy: r.builds > 0 && r.lastErr == nil}
	if r.lastErr != nil {
		s.LastError = r.lastErr.Error()
	}
	return s
}

// Debouncer delays a trigger until no further trigger arrived for the quiet
// window.
type Debouncer struct {
	quiet time.Duration
	fire  func()

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer calls fire once activity has been quiet for quiet.
func NewDebouncer(quiet time.Duration, fire func()) *Debouncer {
	return &Debouncer{quiet: quiet, fire: fire}
}

// Trigger restarts the quiet window.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, d.fire)
}

// Stop cancels a pending trigger.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
