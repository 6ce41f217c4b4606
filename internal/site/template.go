package site

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	htmltemplate "html/template"
	"sort"
	"strings"
)

// Placeholder names one of the six substitution slots of a page layout.
type Placeholder string

const (
	PlaceholderTitle        Placeholder = "{{title}}"
	PlaceholderDescription  Placeholder = "{{description}}"
	PlaceholderContent      Placeholder = "{{content}}"
	PlaceholderBreadcrumb   Placeholder = "{{breadcrumb}}"
	PlaceholderSidebar      Placeholder = "{{sidebar}}"
	PlaceholderLastModified Placeholder = "{{lastModified}}"
)

// Placeholders lists every slot a layout must contain exactly once.
var Placeholders = []Placeholder{
	PlaceholderTitle,
	PlaceholderDescription,
	PlaceholderContent,
	PlaceholderBreadcrumb,
	PlaceholderSidebar,
	PlaceholderLastModified,
}

// ErrInvalidTemplate indicates a layout skeleton with a missing or repeated
// placeholder.
var ErrInvalidTemplate = errors.New("invalid page template")

// Values fills the placeholders of one page. Title and Description are plain
// text; the others are HTML fragments inserted as is.
type Values struct {
	Title        string
	Description  string
	Content      string
	Breadcrumb   string
	Sidebar      string
	LastModified string
}

func (v Values) lookup(p Placeholder) string {
	switch p {
	case PlaceholderTitle:
		return html.EscapeString(v.Title)
	case PlaceholderDescription:
		return html.EscapeString(v.Description)
	case PlaceholderContent:
		return v.Content
	case PlaceholderBreadcrumb:
		return v.Breadcrumb
	case PlaceholderSidebar:
		return v.Sidebar
	case PlaceholderLastModified:
		return v.LastModified
	default:
		return ""
	}
}

// Template is a parsed layout: literal text between the placeholder slots.
// Rendering is a single concatenation, so placeholder tokens inside
// substituted values are emitted literally.
type Template struct {
	literals []string      // len(slots)+1 literal runs
	slots    []Placeholder // slots in document order
}

// ParseTemplate splits skeleton at its placeholders. Every placeholder must
// occur exactly once.
func ParseTemplate(skeleton string) (*Template, error) {
	type hit struct {
		pos int
		p   Placeholder
	}
	hits := make([]hit, 0, len(Placeholders))
	for _, p := range Placeholders {
		switch n := strings.Count(skeleton, string(p)); n {
		case 0:
			return nil, fmt.Errorf("%w: missing %s", ErrInvalidTemplate, p)
		case 1:
			hits = append(hits, hit{pos: strings.Index(skeleton, string(p)), p: p})
		default:
			return nil, fmt.Errorf("%w: %s appears %d times", ErrInvalidTemplate, p, n)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	t := &Template{}
	prev := 0
	for _, h := range hits {
		t.literals = append(t.literals, skeleton[prev:h.pos])
		t.slots = append(t.slots, h.p)
		prev = h.pos + len(h.p)
	}
	t.literals = append(t.literals, skeleton[prev:])
	return t, nil
}

// Render substitutes every placeholder once.
func (t *Template) Render(v Values) []byte {
	var buf bytes.Buffer
	for i, slot := range t.slots {
		buf.WriteString(t.literals[i])
		buf.WriteString(v.lookup(slot))
	}
	buf.WriteString(t.literals[len(t.literals)-1])
	return buf.Bytes()
}

// parseChrome parses an html/template with [[ ]] delimiters so the literal
// {{...}} placeholders pass through untouched.
func parseChrome(name string, src []byte) (*htmltemplate.Template, error) {
	tpl, err := htmltemplate.New(name).Delims("[[", "]]").Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return tpl, nil
}

func executeChrome(tpl *htmltemplate.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", tpl.Name(), err)
	}
	return buf.String(), nil
}
