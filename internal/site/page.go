package site

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/docsite/internal/docs"
	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/frontmatter"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/markdown"
)

// Page is one composed output page before it is written.
type Page struct {
	Source       docs.Document
	Output       string // slash-separated path relative to the output root
	Title        string
	Description  string
	Content      string
	Breadcrumb   string
	Sidebar      string
	LastModified time.Time
	Fingerprint  string
}

// bodyRenderer converts a Markdown body to HTML and its headings.
type bodyRenderer interface {
	Render(body []byte) (markdown.Result, error)
}

// pagePipeline turns one discovered document into one output file.
type pagePipeline struct {
	renderer     bodyRenderer
	layout       *Template
	outputDir    string
	homeLabel    string
	fallbackDesc string
	quickLinks   string
	tocMin       int
	tocMax       int
	timeFormat   string
	lastModified func(doc docs.Document) time.Time
}

// build reads, parses and renders doc. Errors are classified as document
// (read) or render failures; they are subject to the page error policy.
func (p *pagePipeline) build(doc docs.Document) (*Page, error) {
	content, err := doc.ReadContent()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDocument, "failed to read document").
			WithContext("path", doc.RelPath).
			Build()
	}

	fields, body := frontmatter.Extract(content)

	res, err := p.renderer.Render(body)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRender, "failed to render document").
			WithContext("path", doc.RelPath).
			Build()
	}

	fp, err := frontmatter.Fingerprint(fields, body)
	if err != nil {
		slog.Debug("Fingerprint unavailable", logfields.Path(doc.RelPath), logfields.Error(err))
	}

	toc := markdown.RenderTOC(res.Headings, p.tocMin, p.tocMax)
	return &Page{
		Source:       doc,
		Output:       OutputPath(doc.RelPath),
		Title:        ExtractTitle(fields, body, doc.Name),
		Description:  ExtractDescription(fields, body, p.fallbackDesc),
		Content:      string(res.HTML),
		Breadcrumb:   Breadcrumb(doc.RelPath, p.homeLabel),
		Sidebar:      Sidebar(toc, p.quickLinks),
		LastModified: p.lastModified(doc),
		Fingerprint:  fp,
	}, nil
}

// write composes page into the layout and writes it below the output root,
// creating parent directories as needed. Write failures are always fatal.
func (p *pagePipeline) write(page *Page) (string, error) {
	out := p.layout.Render(Values{
		Title:        page.Title,
		Description:  page.Description,
		Content:      page.Content,
		Breadcrumb:   page.Breadcrumb,
		Sidebar:      page.Sidebar,
		LastModified: page.LastModified.Format(p.timeFormat),
	})
	dest := filepath.Join(p.outputDir, filepath.FromSlash(page.Output))
	if err := writeFile(dest, out); err != nil {
		return "", err
	}
	return dest, nil
}

func writeFile(dest string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create output directory").
			WithContext("path", filepath.Dir(dest)).
			Fatal().
			Build()
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write output file").
			WithContext("path", dest).
			Fatal().
			Build()
	}
	return nil
}
