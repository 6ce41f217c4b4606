package site

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"git.home.luguber.info/inful/docsite/internal/frontmatter"
)

// DescriptionLimit is the number of characters kept from the first paragraph
// line when deriving a description.
const DescriptionLimit = 160

var headingPattern = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// ExtractTitle picks the page title: the front matter title, else the first
// level-one heading in the body, else fallback.
func ExtractTitle(fields map[string]any, body []byte, fallback string) string {
	if t, ok := frontmatter.Text(fields, "title"); ok {
		return t
	}
	if m := headingPattern.FindSubmatch(body); m != nil {
		if t := strings.TrimRight(string(m[1]), "\r"); t != "" {
			return t
		}
	}
	return fallback
}

// ExtractDescription picks the page description: the front matter
// description, else the first non-blank body line that is neither a heading
// nor a code fence (trimmed, cut to DescriptionLimit characters and suffixed
// with "..."), else fallback.
func ExtractDescription(fields map[string]any, body []byte, fallback string) string {
	if d, ok := frontmatter.Text(fields, "description"); ok {
		return d
	}
	for _, line := range strings.Split(string(body), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "```") {
			continue
		}
		return truncateRunes(trimmed, DescriptionLimit) + "..."
	}
	return fallback
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
