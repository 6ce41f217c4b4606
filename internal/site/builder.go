package site

import (
	"context"
	stdErrors "errors"
	htmltemplate "html/template"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/docs"
	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/git"
	"git.home.luguber.info/inful/docsite/internal/linkverify"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/markdown"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/version"
)

// RecentLimit is the number of pages listed under "Recently updated" on the
// landing page.
const RecentLimit = 10

// CommitTimeSource reports when a file was last committed.
type CommitTimeSource interface {
	LastCommitTime(absPath string) (time.Time, bool, error)
}

// Option customizes a Builder.
type Option func(*Builder)

// WithRecorder reports stage, page and build metrics to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithObserver adds an observer notified about the build lifecycle.
func WithObserver(o BuildObserver) Option {
	return func(b *Builder) {
		if o != nil {
			b.observers = append(b.observers, o)
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithCommitTimes sets the source used when last_modified is git. Without
// it the builder opens the git repository containing the source root.
func WithCommitTimes(src CommitTimeSource) Option {
	return func(b *Builder) { b.commitTimes = src }
}

// Builder renders a source tree into a static site. A Builder is reusable;
// builds must not overlap.
type Builder struct {
	cfg         config.Config
	sourceDir   string
	outputDir   string
	matcher     *docs.Matcher
	renderer    bodyRenderer
	layout      *Template
	index       *htmltemplate.Template
	quickLinks  string
	recorder    metrics.Recorder
	observers   []BuildObserver
	now         func() time.Time
	commitTimes CommitTimeSource
}

// chromeData feeds the layout skeleton's site-wide parts.
type chromeData struct {
	Lang          string
	Version       string
	Name          string
	Nav           []config.Link
	Copyright     string
	RepositoryURL string
}

// indexData feeds the landing content block.
type indexData struct {
	Site   config.SiteConfig
	Recent []recentPage
}

type recentPage struct {
	URL     string
	Title   string
	Updated string
}

// NewBuilder validates cfg and prepares the layout. A layout skeleton that
// does not contain every placeholder exactly once is rejected here, before
// anything touches the output directory.
func NewBuilder(cfg config.Config, opts ...Option) (*Builder, error) {
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid configuration").Build()
	}

	b := &Builder{
		cfg:      cfg,
		renderer: markdown.NewRenderer(markdown.Options{HighlightStyle: cfg.Markdown.HighlightStyle}),
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}

	var err error
	if b.sourceDir, err = filepath.Abs(cfg.SourceDir); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to resolve source_dir").Build()
	}
	if b.outputDir, err = filepath.Abs(cfg.OutputDir); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to resolve output_dir").Build()
	}
	if b.matcher, err = docs.NewMatcher(cfg.Include, cfg.EffectiveExcludes()); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid discovery patterns").Build()
	}
	if err := b.loadTemplates(); err != nil {
		return nil, err
	}
	b.quickLinks = QuickLinks(cfg.Site.QuickLinksTitle, cfg.Site.QuickLinks)
	return b, nil
}

func (b *Builder) loadTemplates() error {
	site := b.cfg.Site

	src, origin, err := assetSource(assetLayout, site.Layout)
	if err != nil {
		return errors.WrapError(err, errors.CategoryTemplate, "failed to load layout").
			WithContext("layout", origin).Build()
	}
	chrome, err := parseChrome(assetLayout, src)
	if err != nil {
		return errors.WrapError(err, errors.CategoryTemplate, "failed to parse layout").
			WithContext("layout", origin).Build()
	}
	skeleton, err := executeChrome(chrome, chromeData{
		Lang:          site.Lang,
		Version:       version.Version,
		Name:          site.Name,
		Nav:           site.Nav,
		Copyright:     site.Copyright,
		RepositoryURL: site.RepositoryURL,
	})
	if err != nil {
		return errors.WrapError(err, errors.CategoryTemplate, "failed to render layout").
			WithContext("layout", origin).Build()
	}
	if b.layout, err = ParseTemplate(skeleton); err != nil {
		return errors.WrapError(err, errors.CategoryTemplate, "invalid layout").
			WithContext("layout", origin).Build()
	}

	src, origin, err = assetSource(assetIndex, site.IndexContent)
	if err != nil {
		return errors.WrapError(err, errors.CategoryTemplate, "failed to load landing content").
			WithContext("index_content", origin).Build()
	}
	if b.index, err = parseChrome(assetIndex, src); err != nil {
		return errors.WrapError(err, errors.CategoryTemplate, "failed to parse landing content").
			WithContext("index_content", origin).Build()
	}
	return nil
}

// Config returns the configuration the builder was created with.
func (b *Builder) Config() config.Config { return b.cfg.Clone() }

// OutputDir is the absolute output root.
func (b *Builder) OutputDir() string { return b.outputDir }

// SourceDir is the absolute source root.
func (b *Builder) SourceDir() string { return b.sourceDir }

// buildState carries one build's mutable data between stages.
type buildState struct {
	b         *Builder
	report    *Report
	observer  BuildObserver
	buildTime time.Time
	commits   CommitTimeSource
	pipeline  *pagePipeline
	docs      []docs.Document
	pages     []*Page
	manifest  []docs.ManifestEntry
}

func (bs *buildState) recordStage(name StageName, d time.Duration, result StageResult) {
	bs.report.Stages = append(bs.report.Stages, StageTiming{Stage: name, Duration: d, Result: result})
	bs.observer.OnStageComplete(name, d, result)
}

// Build runs every stage once and returns the report. The report is non-nil
// even when the build fails.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	start := b.now()
	report := newReport(uuid.NewString(), start, b.sourceDir, b.outputDir)

	observers := MultiObserver{RecorderObserver{Recorder: b.recorder}}
	observers = append(observers, b.observers...)

	bs := &buildState{
		b:         b,
		report:    report,
		observer:  observers,
		buildTime: start,
	}
	bs.commits = b.resolveCommitTimes(report)
	bs.pipeline = &pagePipeline{
		renderer:     b.renderer,
		layout:       b.layout,
		outputDir:    b.outputDir,
		homeLabel:    b.cfg.Site.HomeLabel,
		fallbackDesc: b.cfg.Site.Description,
		quickLinks:   b.quickLinks,
		tocMin:       b.cfg.Markdown.TOCMinLevel,
		tocMax:       b.cfg.Markdown.TOCMaxLevel,
		timeFormat:   b.cfg.Build.TimestampFormat,
		lastModified: bs.lastModified,
	}

	slog.Info("Build started",
		logfields.BuildID(report.BuildID),
		logfields.Source(b.sourceDir),
		logfields.Output(b.outputDir))
	observers.OnBuildStart(report)

	stages := []stageDef{
		{StagePrepareOutput, stagePrepareOutput},
		{StageWriteAssets, stageWriteAssets},
		{StageDiscoverDocs, stageDiscoverDocs},
		{StageRenderPages, stageRenderPages},
		{StageWriteIndex, stageWriteIndex},
	}
	if b.cfg.Build.VerifyLinks {
		stages = append(stages, stageDef{StageVerifyLinks, stageVerifyLinks})
	}

	err := runStages(ctx, bs, stages)
	var se *StageError
	canceled := stdErrors.As(err, &se) && se.Canceled
	report.finish(b.now(), err, canceled)
	observers.OnBuildComplete(report)

	attrs := []any{
		logfields.BuildID(report.BuildID),
		logfields.Outcome(string(report.Outcome)),
		logfields.Duration(report.Duration()),
		logfields.Count(report.Rendered),
	}
	if err != nil {
		slog.Error("Build failed", append(attrs, logfields.Error(err))...)
		return report, err
	}
	slog.Info("Build finished", attrs...)
	return report, nil
}

// resolveCommitTimes opens the git history when last_modified is git. An
// unusable repository is a warning and falls back to the build time.
func (b *Builder) resolveCommitTimes(report *Report) CommitTimeSource {
	if b.cfg.Build.LastModified != config.LastModifiedGit {
		return nil
	}
	if b.commitTimes != nil {
		return b.commitTimes
	}
	h, err := git.OpenHistory(b.sourceDir)
	if err != nil {
		report.AddWarning("last_modified: git unavailable, using build time: %v", err)
		slog.Warn("Git history unavailable; using build time", logfields.Source(b.sourceDir), logfields.Error(err))
		return nil
	}
	return h
}

func (bs *buildState) lastModified(doc docs.Document) time.Time {
	if bs.commits == nil {
		return bs.buildTime
	}
	when, ok, err := bs.commits.LastCommitTime(doc.Path)
	if err != nil {
		slog.Warn("Commit time lookup failed; using build time", logfields.Path(doc.RelPath), logfields.Error(err))
		return bs.buildTime
	}
	if !ok {
		return bs.buildTime
	}
	return when
}

func stagePrepareOutput(_ context.Context, bs *buildState) error {
	return emptyDir(bs.b.outputDir)
}

// emptyDir removes the contents of dir, creating it when missing.
func emptyDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create output directory").
			WithContext("path", dir).Fatal().Build()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to read output directory").
			WithContext("path", dir).Fatal().Build()
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to clean output directory").
				WithContext("path", filepath.Join(dir, e.Name())).Fatal().Build()
		}
	}
	return nil
}

func stageWriteAssets(_ context.Context, bs *buildState) error {
	for _, name := range staticAssets {
		data, err := embeddedAsset(name)
		if err != nil {
			return errors.WrapError(err, errors.CategoryInternal, "missing embedded asset").
				WithContext("asset", name).Build()
		}
		if err := writeFile(filepath.Join(bs.b.outputDir, name), data); err != nil {
			return err
		}
	}
	return nil
}

func stageDiscoverDocs(ctx context.Context, bs *buildState) error {
	found, err := docs.NewDiscovery(bs.b.sourceDir, bs.b.matcher).Discover(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return errors.WrapError(err, errors.CategoryDiscovery, "document discovery failed").
			WithContext("source_dir", bs.b.sourceDir).Fatal().Build()
	}
	bs.docs = found
	bs.report.Discovered = len(found)
	return nil
}

func stageRenderPages(ctx context.Context, bs *buildState) error {
	policy := bs.b.cfg.Build.OnPageError
	for _, doc := range bs.docs {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := bs.pipeline.build(doc)
		var dest string
		if err == nil {
			dest, err = bs.pipeline.write(page)
		}
		if err != nil {
			if policy == config.PagePolicySkip && !isFatal(err) {
				bs.report.Skipped++
				bs.report.AddWarning("skipped %s: %v", doc.RelPath, err)
				bs.observer.OnPage(bs.report, PageResult{Source: doc.RelPath, Status: PageStatusSkipped, Error: err.Error()})
				slog.Warn("Skipping page", logfields.Path(doc.RelPath), logfields.Policy(string(policy)), logfields.Error(err))
				continue
			}
			bs.observer.OnPage(bs.report, PageResult{Source: doc.RelPath, Status: PageStatusFailed, Error: err.Error()})
			return err
		}

		bs.report.Rendered++
		bs.pages = append(bs.pages, page)
		bs.manifest = append(bs.manifest, docs.ManifestEntry{RelPath: doc.RelPath, Fingerprint: page.Fingerprint})
		bs.observer.OnPage(bs.report, PageResult{
			Source:      doc.RelPath,
			Output:      page.Output,
			Title:       page.Title,
			Fingerprint: page.Fingerprint,
			Status:      PageStatusRendered,
		})
		slog.Info("Generated page", logfields.Path(doc.RelPath), logfields.Output(dest))
	}
	bs.report.DocsHash = docs.ComputeDocsHash(bs.manifest)
	return nil
}

// isFatal reports whether err must stop the build regardless of the page
// error policy.
func isFatal(err error) bool {
	classified, ok := errors.AsClassified(err)
	return ok && classified.IsFatal()
}

func stageWriteIndex(_ context.Context, bs *buildState) error {
	b := bs.b
	content, err := executeChrome(b.index, indexData{Site: b.cfg.Site, Recent: bs.recent(RecentLimit)})
	if err != nil {
		return errors.WrapError(err, errors.CategoryTemplate, "failed to render landing content").Build()
	}
	for _, p := range bs.pages {
		if p.Output == indexFile {
			slog.Warn("Landing page replaces the page generated from the source index", logfields.Path(p.Source.RelPath))
		}
	}
	out := b.layout.Render(Values{
		Title:        b.cfg.Site.Name,
		Description:  b.cfg.Site.Description,
		Content:      content,
		LastModified: bs.buildTime.Format(b.cfg.Build.TimestampFormat),
	})
	return writeFile(filepath.Join(b.outputDir, indexFile), out)
}

// recent returns up to n pages, newest first, ties broken by path.
func (bs *buildState) recent(n int) []recentPage {
	pages := make([]*Page, 0, len(bs.pages))
	for _, p := range bs.pages {
		if p.Output != indexFile {
			pages = append(pages, p)
		}
	}
	sort.SliceStable(pages, func(i, j int) bool {
		if !pages[i].LastModified.Equal(pages[j].LastModified) {
			return pages[i].LastModified.After(pages[j].LastModified)
		}
		return pages[i].Source.RelPath < pages[j].Source.RelPath
	})
	if len(pages) > n {
		pages = pages[:n]
	}
	out := make([]recentPage, 0, len(pages))
	for _, p := range pages {
		out = append(out, recentPage{
			URL:     PageURL(p.Source.RelPath),
			Title:   p.Title,
			Updated: p.LastModified.Format(bs.b.cfg.Build.TimestampFormat),
		})
	}
	return out
}

// stageVerifyLinks records broken internal links as warnings. It never fails
// the build.
func stageVerifyLinks(ctx context.Context, bs *buildState) error {
	// Breadcrumbs link every ancestor directory, which has no page unless
	// the source provides an index.md.
	broken, err := linkverify.NewVerifier(bs.b.outputDir, breadcrumbClass).Verify(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		bs.report.AddWarning("link verification incomplete: %v", err)
		slog.Warn("Link verification incomplete", logfields.Error(err))
	}
	bs.report.BrokenLinks = len(broken)
	for _, l := range broken {
		bs.report.AddWarning("broken link in %s: %s (%s)", l.Page, l.URL, l.Reason)
		slog.Warn("Broken link", logfields.Path(l.Page), logfields.URL(l.URL), slog.String("reason", l.Reason))
	}
	return nil
}
