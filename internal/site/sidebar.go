package site

import (
	"html"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/config"
)

// QuickLinks renders the static quick-links block shown under every table
// of contents. It is empty when there are no links.
func QuickLinks(title string, links []config.Link) string {
	if len(links) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<div class="sidebar-section"><h4>`)
	b.WriteString(html.EscapeString(title))
	b.WriteString(`</h4><ul>`)
	for _, l := range links {
		b.WriteString(`<li><a href="`)
		b.WriteString(html.EscapeString(l.URL))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(l.Title))
		b.WriteString(`</a></li>`)
	}
	b.WriteString(`</ul></div>`)
	return b.String()
}

// Sidebar wraps a table of contents and the quick-links block.
func Sidebar(toc, quickLinks string) string {
	return `<aside class="sidebar">` + toc + quickLinks + `</aside>`
}
