package docs

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	derrors "git.home.luguber.info/inful/docsite/internal/docs/errors"
)

// Matcher decides which slash-separated relative paths are documents.
//
// Patterns use '/' as separator: '*' stays within one path segment and '**'
// spans any number of segments. A leading "**/" also matches files at the
// root, so "**/*.md" selects "README.md" as well as "a/b/c.md".
type Matcher struct {
	include glob.Glob
	exclude []glob.Glob
}

// NewMatcher compiles the include pattern and exclude patterns.
func NewMatcher(include string, exclude []string) (*Matcher, error) {
	inc, err := glob.Compile(include, '/')
	if err != nil {
		return nil, fmt.Errorf("%w: include %q: %w", derrors.ErrInvalidPattern, include, err)
	}
	m := &Matcher{include: inc, exclude: make([]glob.Glob, 0, len(exclude))}
	for _, p := range exclude {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%w: exclude %q: %w", derrors.ErrInvalidPattern, p, err)
		}
		m.exclude = append(m.exclude, g)
	}
	return m, nil
}

// Match reports whether the file at rel is a document: it matches the include
// pattern and no exclude pattern.
func (m *Matcher) Match(rel string) bool {
	rel = strings.TrimPrefix(rel, "./")
	return matchGlob(m.include, rel) && !m.Excluded(rel)
}

// Excluded reports whether rel matches an exclude pattern.
func (m *Matcher) Excluded(rel string) bool {
	for _, g := range m.exclude {
		if matchGlob(g, rel) {
			return true
		}
	}
	return false
}

// ExcludedDir reports whether every path below the directory rel is
// excluded, which lets a walk skip the directory entirely.
func (m *Matcher) ExcludedDir(rel string) bool {
	rel = strings.TrimSuffix(rel, "/")
	return m.Excluded(rel + "/")
}

func matchGlob(g glob.Glob, rel string) bool {
	return g.Match(rel) || g.Match("/"+rel)
}
