// Package markdown converts Markdown bodies to HTML fragments and reports
// the heading structure used for tables of contents.
package markdown

import (
	"bytes"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// DefaultHighlightStyle is the chroma style used for fenced code.
const DefaultHighlightStyle = "github"

// CodeTabWidth is the rendered width of a tab inside fenced code. Styles are
// inlined so pages need no extra stylesheet.
const CodeTabWidth = 4

// Options controls the conversion.
type Options struct {
	// HighlightStyle names a chroma style. Empty selects DefaultHighlightStyle.
	HighlightStyle string
}

// Heading is one heading of a rendered document, in document order.
type Heading struct {
	Level int
	ID    string
	Text  string
}

// Result is the structured output of a conversion.
type Result struct {
	HTML     []byte
	Headings []Heading
}

// Renderer converts Markdown to HTML. It is safe for sequential reuse; every
// call gets a fresh parser context so heading IDs restart per document.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer builds a renderer with GFM tables, strikethrough, task lists and
// autolinks, typographic punctuation, heading anchors and chroma highlighting.
// Raw HTML in the source passes through untouched.
func NewRenderer(opts Options) *Renderer {
	style := opts.HighlightStyle
	if style == "" {
		style = DefaultHighlightStyle
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(false),
					chromahtml.TabWidth(CodeTabWidth),
					chromahtml.WrapLongLines(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
	return &Renderer{md: md}
}

// Render converts body (frontmatter already removed).
func (r *Renderer) Render(body []byte) (Result, error) {
	ctx := parser.NewContext(parser.WithIDs(newHeadingIDs()))
	doc := r.md.Parser().Parse(text.NewReader(body), parser.WithContext(ctx))

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, body, doc); err != nil {
		return Result{}, fmt.Errorf("render markdown: %w", err)
	}
	return Result{HTML: buf.Bytes(), Headings: collectHeadings(doc, body)}, nil
}

func collectHeadings(doc gmast.Node, source []byte) []Heading {
	var out []Heading
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		var id string
		if v, found := h.AttributeString("id"); found {
			if b, isBytes := v.([]byte); isBytes {
				id = string(b)
			}
		}
		out = append(out, Heading{Level: h.Level, ID: id, Text: inlineText(h, source)})
		return gmast.WalkSkipChildren, nil
	})
	return out
}
