package preview

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/metrics"
)

func TestRebuilder_CoalescesRequestsWhileRunning(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{}, 4)
	release := make(chan struct{})
	rb := NewRebuilder(func(context.Context) error {
		calls.Add(1)
		started <- struct{}{}
		<-release
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rb.Run(ctx)

	rb.Request()
	<-started
	// Three requests during the running build collapse into one follow-up.
	rb.Request()
	rb.Request()
	rb.Request()
	release <- struct{}{}
	<-started
	release <- struct{}{}

	require.Eventually(t, func() bool { return rb.Status().Builds == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, rb.Status().Healthy)
}

func TestRebuilder_StatusReportsFailure(t *testing.T) {
	rb := NewRebuilder(func(context.Context) error { return errors.New("broken page") })
	assert.False(t, rb.Status().Healthy, "no build yet")
	require.Error(t, rb.BuildNow(context.Background()))
	s := rb.Status()
	assert.Equal(t, 1, s.Builds)
	assert.False(t, s.Healthy)
	assert.Equal(t, "broken page", s.LastError)
}

func TestDebouncer_FiresOnceAfterBurst(t *testing.T) {
	var fired atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { fired.Add(1) })
	for range 5 {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestScheduler_RequestsPeriodically(t *testing.T) {
	var calls atomic.Int32
	s, err := NewScheduler(20*time.Millisecond, func() { calls.Add(1) })
	require.NoError(t, err)
	s.Start()
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())
}

func TestShouldIgnoreEvent(t *testing.T) {
	assert.True(t, shouldIgnoreEvent("/src/.hidden.md"))
	assert.True(t, shouldIgnoreEvent("/src/a.md~"))
	assert.True(t, shouldIgnoreEvent("/src/.a.md.swp"))
	assert.True(t, shouldIgnoreEvent("/src/#a.md#"))
	assert.False(t, shouldIgnoreEvent("/src/a.md"))
}

func TestWatcher_TriggersOnChangeAndIgnoresOutput(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(src, "dist")
	require.NoError(t, os.MkdirAll(out, 0o755))

	w, err := NewWatcher(src, out)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	var mu sync.Mutex
	changes := 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, func() {
		mu.Lock()
		changes++
		mu.Unlock()
	})

	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("x"), 0o600))
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 0, changes, "output writes must not trigger rebuilds")
	mu.Unlock()

	require.NoError(t, os.WriteFile(filepath.Join(src, "a.md"), []byte("# A"), 0o600))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return changes > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresListedFiles(t *testing.T) {
	src := t.TempDir()
	db := filepath.Join(src, "history.db")

	w, err := NewWatcher(src, filepath.Join(src, "dist"), db, "")
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	var changes atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, func() { changes.Add(1) })

	for _, name := range []string{"history.db", "history.db-journal", "history.db-wal"} {
		require.NoError(t, os.WriteFile(filepath.Join(src, name), []byte("x"), 0o600))
	}
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, changes.Load(), "listed files and their siblings must not trigger rebuilds")

	require.NoError(t, os.WriteFile(filepath.Join(src, "a.md"), []byte("# A"), 0o600))
	require.Eventually(t, func() bool { return changes.Load() > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("<h1>home</h1>"), 0o600))
	rec := metrics.NewPrometheusRecorder(nil)
	rec.IncBuildOutcome(metrics.BuildOutcomeSuccess)

	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(NewHandler(out, rec.Registry(), func() Status { return Status{Builds: 1, Healthy: healthy.Load()} }))
	defer srv.Close()

	body := get(t, srv.URL+"/", http.StatusOK)
	assert.Contains(t, body, "<h1>home</h1>")

	body = get(t, srv.URL+"/metrics", http.StatusOK)
	assert.Contains(t, body, "docsite_build_outcomes_total")

	body = get(t, srv.URL+"/healthz", http.StatusOK)
	var s Status
	require.NoError(t, json.Unmarshal([]byte(body), &s))
	assert.Equal(t, 1, s.Builds)

	healthy.Store(false)
	get(t, srv.URL+"/healthz", http.StatusServiceUnavailable)
	get(t, srv.URL+"/missing.html", http.StatusNotFound)
}

func get(t *testing.T, url string, wantStatus int) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, wantStatus, resp.StatusCode)
	return string(data)
}

func TestRun_ServesAndRebuilds(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	var builds atomic.Int32
	build := func(context.Context) error {
		n := builds.Add(1)
		return os.WriteFile(filepath.Join(out, "index.html"), []byte{byte('0' + n)}, 0o600)
	}

	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{
			Addr:      "127.0.0.1:0",
			SourceDir: src,
			OutputDir: out,
			Debounce:  20 * time.Millisecond,
			Build:     build,
			Ready:     func(addr string) { addrCh <- addr },
		})
	}()

	addr := <-addrCh
	assert.Equal(t, "1", get(t, "http://"+addr+"/", http.StatusOK))

	require.NoError(t, os.WriteFile(filepath.Join(src, "a.md"), []byte("# A"), 0o600))
	require.Eventually(t, func() bool { return builds.Load() >= 2 }, 3*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

// freeAddr returns a loopback address that was free a moment ago.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestRun_MissingSourceLeavesPortFree(t *testing.T) {
	addr := freeAddr(t)
	var builds atomic.Int32

	err := Run(context.Background(), Options{
		Addr:      addr,
		SourceDir: filepath.Join(t.TempDir(), "missing"),
		OutputDir: t.TempDir(),
		Debounce:  20 * time.Millisecond,
		Interval:  time.Minute,
		Build:     func(context.Context) error { builds.Add(1); return nil },
	})
	require.Error(t, err)
	assert.Zero(t, builds.Load())

	ln, err := net.Listen("tcp", addr)
	require.NoError(t, err, "address must be released")
	require.NoError(t, ln.Close())
}

func TestRun_ReturnsWhenAddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), Options{
			Addr:      ln.Addr().String(),
			SourceDir: t.TempDir(),
			OutputDir: t.TempDir(),
			Debounce:  20 * time.Millisecond,
			Interval:  time.Minute,
			Build:     func(context.Context) error { return nil },
		})
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to start preview server")
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after listen failure")
	}
}
