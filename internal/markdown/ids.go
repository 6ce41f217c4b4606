package markdown

import (
	"strconv"
	"strings"
	"unicode"

	gmast "github.com/yuin/goldmark/ast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// headingIDs generates anchor IDs that keep non-Latin letters, so Korean or
// Japanese headings get readable anchors instead of "heading-1".
type headingIDs struct {
	lower cases.Caser
	used  map[string]bool
}

func newHeadingIDs() *headingIDs {
	return &headingIDs{
		lower: cases.Lower(language.Und),
		used:  map[string]bool{},
	}
}

// Generate implements parser.IDs. Repeated headings get -1, -2, ... suffixes.
func (h *headingIDs) Generate(value []byte, _ gmast.NodeKind) []byte {
	base := Slug(h.lower.String(norm.NFC.String(string(value))))
	if base == "" {
		base = "heading"
	}
	id := base
	for n := 1; h.used[id]; n++ {
		id = base + "-" + strconv.Itoa(n)
	}
	h.used[id] = true
	return []byte(id)
}

// Put implements parser.IDs.
func (h *headingIDs) Put(value []byte) {
	h.used[string(value)] = true
}

// Slug keeps letters, digits, '-' and '_', turns whitespace into '-' and
// drops everything else. Runs of '-' collapse and edge dashes are trimmed.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.Is(unicode.Mn, r):
			b.WriteRune(r)
			dash = false
		case r == '-' || unicode.IsSpace(r):
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
