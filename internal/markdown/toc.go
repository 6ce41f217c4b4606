package markdown

import (
	"html"
	"strings"

	gmast "github.com/yuin/goldmark/ast"
)

// TOCClass is the class of the table-of-contents container.
const TOCClass = "table-of-contents"

// RenderTOC renders headings with minLevel <= Level <= maxLevel as nested
// lists inside a table-of-contents container. Nesting is relative to the
// shallowest included heading and never skips a level. It returns "" when no
// heading qualifies.
func RenderTOC(headings []Heading, minLevel, maxLevel int) string {
	items := make([]Heading, 0, len(headings))
	base := maxLevel
	for _, h := range headings {
		if h.Level < minLevel || h.Level > maxLevel || h.ID == "" {
			continue
		}
		items = append(items, h)
		base = min(base, h.Level)
	}
	if len(items) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(`<div class="` + TOCClass + `">`)
	depth := 0
	for _, h := range items {
		lvl := min(h.Level-base+1, depth+1)
		if lvl > depth {
			b.WriteString("<ul>")
			depth = lvl
		} else {
			b.WriteString("</li>")
			for depth > lvl {
				b.WriteString("</ul></li>")
				depth--
			}
		}
		b.WriteString(`<li><a href="#`)
		b.WriteString(html.EscapeString(h.ID))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(h.Text))
		b.WriteString("</a>")
	}
	b.WriteString("</li>")
	for depth > 1 {
		b.WriteString("</ul></li>")
		depth--
	}
	b.WriteString("</ul></div>")
	return b.String()
}

// inlineText flattens the text content of an inline container.
func inlineText(n gmast.Node, source []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			b.Write(t.Segment.Value(source))
		case *gmast.String:
			if t.IsCode() {
				// Typographer output is an HTML entity.
				b.WriteString(html.UnescapeString(string(t.Value)))
			} else {
				b.Write(t.Value)
			}
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
