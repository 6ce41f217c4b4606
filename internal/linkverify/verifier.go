package linkverify

import (
	"context"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
)

// BrokenLink is an internal link whose target does not exist.
type BrokenLink struct {
	Page   string // slash-separated page path relative to the site root
	URL    string
	Reason string
}

// Verifier checks the internal links of every HTML page below Root.
type Verifier struct {
	Root string
	// SkipWithin names container classes whose links are not checked.
	SkipWithin []string
}

// NewVerifier creates a verifier for the site rooted at root. Links inside
// elements carrying one of the skipWithin classes are ignored.
func NewVerifier(root string, skipWithin ...string) *Verifier {
	return &Verifier{Root: root, SkipWithin: skipWithin}
}

func (v *Verifier) skipped(l Link) bool {
	for _, class := range v.SkipWithin {
		if l.InClass(class) {
			return true
		}
	}
	return false
}

// Verify walks the site and returns broken internal links ordered by page
// then document order. Pages that cannot be parsed are reported as errors.
func (v *Verifier) Verify(ctx context.Context) ([]BrokenLink, error) {
	var pages []string
	err := filepath.WalkDir(v.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".html") {
			pages = append(pages, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to walk site").
			WithContext("root", v.Root).
			Build()
	}
	sort.Strings(pages)

	var broken []BrokenLink
	for _, p := range pages {
		links, err := ExtractLinks(p)
		if err != nil {
			return broken, err
		}
		rel, _ := filepath.Rel(v.Root, p)
		rel = filepath.ToSlash(rel)
		for _, l := range links {
			if !IsInternal(l.URL) || v.skipped(l) {
				continue
			}
			if reason, ok := v.resolve(rel, l.URL); !ok {
				broken = append(broken, BrokenLink{Page: rel, URL: l.URL, Reason: reason})
			}
		}
	}
	return broken, nil
}

// resolve maps link, found on page, to a file below the root. A link to a
// directory resolves to its index.html.
func (v *Verifier) resolve(page, link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return "unparseable url", false
	}
	target := u.Path
	if target == "" {
		// Query-only links point back at the page itself.
		return "", true
	}
	if !strings.HasPrefix(target, "/") {
		target = path.Join("/", path.Dir(page), target)
		if strings.HasSuffix(u.Path, "/") {
			target += "/"
		}
	}
	// Cleaning a rooted path drops leading "..", keeping targets below Root.
	clean := path.Clean(target)
	fsPath := filepath.Join(v.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	if strings.HasSuffix(target, "/") {
		fsPath = filepath.Join(fsPath, "index.html")
	}
	info, err := os.Stat(fsPath)
	if err != nil {
		return "target not found", false
	}
	if info.IsDir() {
		if _, err := os.Stat(filepath.Join(fsPath, "index.html")); err != nil {
			return "directory without index.html", false
		}
	}
	return "", true
}
