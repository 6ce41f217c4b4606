package site

import (
	"html"
	"path"
	"strings"
)

// OutputPath maps a slash-separated source path to its page path: the
// extension becomes .html and directories are kept.
func OutputPath(rel string) string {
	return strings.TrimSuffix(rel, path.Ext(rel)) + ".html"
}

// PageURL is the site-absolute URL of the page generated from rel.
func PageURL(rel string) string {
	return "/" + OutputPath(rel)
}

// breadcrumbClass marks the navigation trail container.
const breadcrumbClass = "breadcrumb"

// Breadcrumb renders the navigation trail for the document at rel: a home
// link, one link per ancestor directory and the file name without extension
// as plain text.
func Breadcrumb(rel, homeLabel string) string {
	parts := strings.Split(strings.Trim(rel, "/"), "/")

	var b strings.Builder
	b.WriteString(`<nav class="` + breadcrumbClass + `"><a href="/">`)
	b.WriteString(html.EscapeString(homeLabel))
	b.WriteString(`</a>`)

	cumulative := "/"
	for _, dir := range parts[:len(parts)-1] {
		cumulative += dir + "/"
		b.WriteString(` > <a href="`)
		b.WriteString(html.EscapeString(cumulative))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(dir))
		b.WriteString(`</a>`)
	}

	last := parts[len(parts)-1]
	b.WriteString(" > ")
	b.WriteString(html.EscapeString(strings.TrimSuffix(last, path.Ext(last))))
	b.WriteString(`</nav>`)
	return b.String()
}
