package site

import (
	"bytes"
	"context"
	stdErrors "errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/markdown"
	"git.home.luguber.info/inful/docsite/internal/metrics"
)

var fixedTime = time.Date(2024, 5, 6, 7, 8, 0, 0, time.UTC)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
}

func testConfig(t *testing.T, src string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.SourceDir = src
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	return cfg
}

func newTestBuilder(t *testing.T, cfg config.Config, opts ...Option) *Builder {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedTime })}, opts...)
	b, err := NewBuilder(cfg, opts...)
	require.NoError(t, err)
	return b
}

func readOut(t *testing.T, cfg config.Config, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

// listTree returns every file below root as slash-separated relative paths.
func listTree(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	require.NoError(t, filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		out = append(out, filepath.ToSlash(rel))
		return nil
	}))
	return out
}

var sampleTree = map[string]string{
	"README.md":                "# Archive\n\nWelcome to the archive.\n",
	"subjects/math/algebra.md": "---\ntitle: Linear Algebra\ndescription: Vectors and matrices\n---\n# Ignored\n\n## Vectors\n\n### Dot product\n\n## Matrices\n",
	"subjects/notes.md":        "Just text without headings.\n",
	"node_modules/pkg/x.md":    "# Dependency\n",
	"automation/run.md":        "# Automation\n",
	".github/issue.md":         "# Hidden\n",
	"other.txt":                "not markdown",
}

func TestBuild_GeneratesSite(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, sampleTree)
	cfg := testConfig(t, src)

	report, err := newTestBuilder(t, cfg).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.Equal(t, 3, report.Discovered)
	assert.Equal(t, 3, report.Rendered)
	assert.NotEmpty(t, report.BuildID)
	assert.NotEmpty(t, report.DocsHash)
	assert.ElementsMatch(t, []string{
		"README.html",
		"index.html",
		"script.js",
		"style.css",
		"subjects/math/algebra.html",
		"subjects/notes.html",
	}, listTree(t, cfg.OutputDir))

	var stages []StageName
	for _, s := range report.Stages {
		stages = append(stages, s.Stage)
		assert.Equal(t, StageResultSuccess, s.Result)
	}
	assert.Equal(t, []StageName{StagePrepareOutput, StageWriteAssets, StageDiscoverDocs, StageRenderPages, StageWriteIndex}, stages)

	page := readOut(t, cfg, "subjects/math/algebra.html")
	assert.Contains(t, page, "<title>Linear Algebra - Documentation Archive</title>")
	assert.Contains(t, page, `<meta name="description" content="Vectors and matrices">`)
	assert.Contains(t, page, `<nav class="breadcrumb"><a href="/">Home</a> > <a href="/subjects/">subjects</a> > <a href="/subjects/math/">math</a> > algebra</nav>`)
	assert.Contains(t, page, `<aside class="sidebar"><div class="table-of-contents"><ul><li><a href="#ignored">Ignored</a><ul><li><a href="#vectors">Vectors</a>`)
	assert.Contains(t, page, `<div class="sidebar-section"><h4>Quick links</h4>`)
	assert.Contains(t, page, "Last updated: 2024-05-06 07:08")
	for _, p := range Placeholders {
		assert.NotContains(t, page, string(p))
	}

	notes := readOut(t, cfg, "subjects/notes.html")
	assert.Contains(t, notes, "<title>notes - Documentation Archive</title>")
	assert.Contains(t, notes, `content="Just text without headings...."`)
	assert.Contains(t, notes, `<aside class="sidebar"><div class="sidebar-section">`, "no headings means no toc block")

	index := readOut(t, cfg, "index.html")
	assert.Contains(t, index, "<title>Documentation Archive - Documentation Archive</title>")
	assert.Contains(t, index, `<div class="hero">`)
	assert.Contains(t, index, `<a href="/subjects/math/algebra.html">Linear Algebra</a>`)
	assert.NotContains(t, index, `class="breadcrumb"`)
	assert.NotContains(t, index, `class="sidebar"`)
}

func TestBuild_IdempotentAndRemovesStaleFiles(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, sampleTree)
	cfg := testConfig(t, src)
	b := newTestBuilder(t, cfg)

	_, err := b.Build(context.Background())
	require.NoError(t, err)
	first := snapshot(t, cfg.OutputDir)

	writeTree(t, cfg.OutputDir, map[string]string{"stale/old.html": "old", "leftover.html": "x"})

	_, err = b.Build(context.Background())
	require.NoError(t, err)
	second := snapshot(t, cfg.OutputDir)

	assert.Equal(t, first, second)
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "leftover.html"))
	assert.NoDirExists(t, filepath.Join(cfg.OutputDir, "stale"))
}

var lastUpdated = regexp.MustCompile(`Last updated: [^<]*`)

// snapshot maps every output file to its content with the timestamp masked.
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, rel := range listTree(t, root) {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		require.NoError(t, err)
		out[rel] = lastUpdated.ReplaceAllString(string(data), "Last updated: X")
	}
	return out
}

func TestBuild_TimestampIsOnlyDifference(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.md": "# A\n"})
	cfg := testConfig(t, src)

	clock := fixedTime
	b := newTestBuilder(t, cfg, WithClock(func() time.Time { return clock }))
	_, err := b.Build(context.Background())
	require.NoError(t, err)
	first := readOut(t, cfg, "a.html")

	clock = fixedTime.Add(90 * time.Minute)
	_, err = b.Build(context.Background())
	require.NoError(t, err)
	second := readOut(t, cfg, "a.html")

	assert.NotEqual(t, first, second)
	assert.Equal(t, lastUpdated.ReplaceAllString(first, ""), lastUpdated.ReplaceAllString(second, ""))
	assert.Contains(t, second, "Last updated: 2024-05-06 08:38")
}

func TestBuild_OutputInsideSourceIsNeverDiscovered(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"a.md":               "# A\n",
		"public/site/old.md": "# Old output\n",
	})
	cfg := config.Default()
	cfg.SourceDir = src
	cfg.OutputDir = filepath.Join(src, "public", "site")

	report, err := newTestBuilder(t, cfg).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Discovered)
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "public", "site", "old.html"))
}

func TestBuild_CustomExcludes(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"a.md":          "# A\n",
		"drafts/wip.md": "# WIP\n",
	})
	cfg := testConfig(t, src)
	cfg.Exclude = append(cfg.Exclude, "drafts/**")

	report, err := newTestBuilder(t, cfg).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Discovered)
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "drafts", "wip.html"))
}

func TestBuild_PlaceholderTokensInContentAreLiteral(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"tokens.md": "---\ntitle: \"Using {{content}}\"\n---\nThe layout uses {{sidebar}} and {{title}}.\n",
	})
	cfg := testConfig(t, src)

	_, err := newTestBuilder(t, cfg).Build(context.Background())
	require.NoError(t, err)

	page := readOut(t, cfg, "tokens.html")
	assert.Contains(t, page, "<title>Using {{content}} - Documentation Archive</title>")
	assert.Contains(t, page, "The layout uses {{sidebar}} and {{title}}.")
	assert.Equal(t, 1, strings.Count(page, `<aside class="sidebar">`))
}

// failingRenderer fails for bodies containing marker.
type failingRenderer struct {
	next   bodyRenderer
	marker string
}

func (f failingRenderer) Render(body []byte) (markdown.Result, error) {
	if bytes.Contains(body, []byte(f.marker)) {
		return markdown.Result{}, stdErrors.New("renderer exploded")
	}
	return f.next.Render(body)
}

func brokenTree() map[string]string {
	return map[string]string{
		"a.md": "# A\n",
		"b.md": "# B\nBROKEN\n",
		"c.md": "# C\n",
	}
}

func TestBuild_FailPolicyAborts(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, brokenTree())
	cfg := testConfig(t, src)

	b := newTestBuilder(t, cfg)
	b.renderer = failingRenderer{next: b.renderer, marker: "BROKEN"}

	report, err := b.Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryRender), "got %v", err)
	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Equal(t, 1, report.Rendered)
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "a.html"))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "c.html"))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "index.html"))

	var se *StageError
	require.True(t, stdErrors.As(err, &se))
	assert.Equal(t, StageRenderPages, se.Stage)
}

func TestBuild_SkipPolicyContinues(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, brokenTree())
	cfg := testConfig(t, src)
	cfg.Build.OnPageError = config.PagePolicySkip

	rec := &recordingObserver{}
	b := newTestBuilder(t, cfg, WithObserver(rec))
	b.renderer = failingRenderer{next: b.renderer, marker: "BROKEN"}

	report, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeWarning, report.Outcome)
	assert.Equal(t, 2, report.Rendered)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "b.md")
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "a.html"))
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "c.html"))
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "index.html"))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "b.html"))

	assert.Equal(t, []PageStatus{PageStatusRendered, PageStatusSkipped, PageStatusRendered}, rec.statuses())
	assert.Equal(t, StageResultWarning, rec.stageResult(StageRenderPages))
	assert.Equal(t, OutcomeWarning, rec.completed.Outcome)
}

func TestBuild_SkipPolicyStopsOnWriteFailure(t *testing.T) {
	src := t.TempDir()
	// a.html/b.md creates the directory a.html before a.md is written to the
	// same path.
	writeTree(t, src, map[string]string{
		"a.html/b.md": "# B\n",
		"a.md":        "# A\n",
	})
	cfg := testConfig(t, src)
	cfg.Build.OnPageError = config.PagePolicySkip

	rec := &recordingObserver{}
	report, err := newTestBuilder(t, cfg, WithObserver(rec)).Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFileSystem))
	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Equal(t, 1, report.Rendered)
	assert.Zero(t, report.Skipped)
	assert.Equal(t, []PageStatus{PageStatusRendered, PageStatusFailed}, rec.statuses())
}

func TestNewBuilder_InvalidLayout(t *testing.T) {
	src := t.TempDir()
	layout := filepath.Join(t.TempDir(), "layout.html")
	require.NoError(t, os.WriteFile(layout, []byte("<html>{{title}}{{content}}{{content}}</html>"), 0o600))

	cfg := testConfig(t, src)
	cfg.Site.Layout = layout

	_, err := NewBuilder(cfg)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryTemplate))
	assert.True(t, stdErrors.Is(err, ErrInvalidTemplate))
	assert.NoDirExists(t, cfg.OutputDir, "nothing is written before the build")
}

func TestNewBuilder_CustomLayoutAndIndex(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.md": "# A\n"})
	dir := t.TempDir()
	layout := filepath.Join(dir, "layout.html")
	index := filepath.Join(dir, "landing.html")
	require.NoError(t, os.WriteFile(layout, []byte(
		`<h1>[[ .Name ]]</h1>{{title}}|{{description}}|{{breadcrumb}}|{{content}}|{{sidebar}}|{{lastModified}}`), 0o600))
	require.NoError(t, os.WriteFile(index, []byte(`<p>Welcome to [[ .Site.Name ]]</p>`), 0o600))

	cfg := testConfig(t, src)
	cfg.Site.Name = "Notes"
	cfg.Site.Layout = layout
	cfg.Site.IndexContent = index

	_, err := newTestBuilder(t, cfg).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t,
		`<h1>Notes</h1>Notes|A structured archive of study notes and documentation||<p>Welcome to Notes</p>||2024-05-06 07:08`,
		readOut(t, cfg, "index.html"))
}

func TestBuild_MissingSourceIsDiscoveryError(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing"))
	report, err := newTestBuilder(t, cfg).Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryDiscovery))
	assert.Equal(t, OutcomeFailed, report.Outcome)
}

func TestBuild_Canceled(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.md": "# A\n"})
	cfg := testConfig(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := newTestBuilder(t, cfg).Build(ctx)
	require.Error(t, err)
	assert.Equal(t, OutcomeCanceled, report.Outcome)
	assert.True(t, errors.HasCategory(err, errors.CategoryRuntime))
	require.Len(t, report.Stages, 1)
	assert.Equal(t, StageResultCanceled, report.Stages[0].Result)
}

type stubCommits map[string]time.Time

func (s stubCommits) LastCommitTime(absPath string) (time.Time, bool, error) {
	when, ok := s[filepath.Base(absPath)]
	return when, ok, nil
}

func TestBuild_LastModifiedFromCommitTimes(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"old.md": "# Old\n", "new.md": "# New\n", "draft.md": "# Draft\n"})
	cfg := testConfig(t, src)
	cfg.Build.LastModified = config.LastModifiedGit

	commits := stubCommits{
		"old.md": time.Date(2023, 1, 2, 3, 4, 0, 0, time.UTC),
		"new.md": time.Date(2024, 2, 3, 4, 5, 0, 0, time.UTC),
	}
	_, err := newTestBuilder(t, cfg, WithCommitTimes(commits)).Build(context.Background())
	require.NoError(t, err)

	assert.Contains(t, readOut(t, cfg, "old.html"), "Last updated: 2023-01-02 03:04")
	assert.Contains(t, readOut(t, cfg, "new.html"), "Last updated: 2024-02-03 04:05")
	assert.Contains(t, readOut(t, cfg, "draft.html"), "Last updated: 2024-05-06 07:08")

	// Recently updated: build-time draft first, then by commit time.
	index := readOut(t, cfg, "index.html")
	d := strings.Index(index, "/draft.html")
	n := strings.Index(index, "/new.html")
	o := strings.Index(index, "/old.html")
	assert.True(t, d >= 0 && d < n && n < o, "unexpected recent order")
}

func TestBuild_LastModifiedFromGitRepository(t *testing.T) {
	src := t.TempDir()
	repo, err := git.PlainInit(src, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	writeTree(t, src, map[string]string{"committed.md": "# Committed\n"})
	_, err = wt.Add("committed.md")
	require.NoError(t, err)
	when := time.Date(2022, 9, 8, 7, 6, 0, 0, time.UTC)
	_, err = wt.Commit("add", &git.CommitOptions{Author: &object.Signature{Name: "t", Email: "t@example.com", When: when}})
	require.NoError(t, err)
	writeTree(t, src, map[string]string{"uncommitted.md": "# Uncommitted\n"})

	cfg := testConfig(t, src)
	cfg.Build.LastModified = config.LastModifiedGit

	report, err := newTestBuilder(t, cfg).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.Contains(t, readOut(t, cfg, "committed.html"), "Last updated: "+when.Format(config.DefaultTimestampFormat))
	assert.Contains(t, readOut(t, cfg, "uncommitted.html"), "Last updated: 2024-05-06 07:08")
}

func TestBuild_LastModifiedGitOutsideRepositoryWarns(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.md": "# A\n"})
	cfg := testConfig(t, src)
	cfg.Build.LastModified = config.LastModifiedGit

	report, err := newTestBuilder(t, cfg).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeWarning, report.Outcome)
	assert.Contains(t, readOut(t, cfg, "a.html"), "Last updated: 2024-05-06 07:08")
}

func TestBuild_VerifyLinks(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"a.md":         "# A\n\n[b](/b.html) [missing](/nope.html) [dir](/sub/) [deep](/notes/deep/c.html)\n",
		"b.md":         "# B\n",
		"sub/index.md": "# Sub\n",
		// No index.md in notes/ or notes/deep/: the breadcrumb still links both.
		"notes/deep/c.md": "# C\n",
	})
	cfg := testConfig(t, src)
	cfg.Build.VerifyLinks = true
	cfg.Site.Nav = []config.Link{{Title: "A", URL: "/a.html"}}
	cfg.Site.QuickLinks = []config.Link{{Title: "B", URL: "/b.html"}}

	report, err := newTestBuilder(t, cfg).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.BrokenLinks)
	assert.Equal(t, OutcomeWarning, report.Outcome)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "/nope.html")
	assert.Contains(t, readOut(t, cfg, "notes/deep/c.html"), `<a href="/notes/deep/">deep</a>`)
}

func TestBuild_RecordsMetrics(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.md": "# A\n"})
	cfg := testConfig(t, src)

	rec := metrics.NewPrometheusRecorder(nil)
	_, err := newTestBuilder(t, cfg, WithRecorder(rec)).Build(context.Background())
	require.NoError(t, err)

	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["docsite_stage_duration_seconds"])
	assert.True(t, names["docsite_build_outcomes_total"])
	assert.True(t, names["docsite_page_results_total"])
}

type recordingObserver struct {
	NoopObserver
	mu        sync.Mutex
	pages     []PageResult
	stages    map[StageName]StageResult
	completed *Report
}

func (r *recordingObserver) OnStageComplete(stage StageName, _ time.Duration, result StageResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stages == nil {
		r.stages = make(map[StageName]StageResult)
	}
	r.stages[stage] = result
}

func (r *recordingObserver) OnPage(_ *Report, page PageResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = append(r.pages, page)
}

func (r *recordingObserver) OnBuildComplete(report *Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = report
}

func (r *recordingObserver) statuses() []PageStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PageStatus, 0, len(r.pages))
	for _, p := range r.pages {
		out = append(out, p.Status)
	}
	return out
}

func (r *recordingObserver) stageResult(stage StageName) StageResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stages[stage]
}
