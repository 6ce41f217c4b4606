package docs

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	derrors "git.home.luguber.info/inful/docsite/internal/docs/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// Document is a discovered Markdown source file.
type Document struct {
	RelPath string // slash-separated path relative to the source root
	Path    string // absolute path on disk
	Name    string // file name without extension
	Section string // slash-separated parent directory, "" at the root
}

// Discovery walks a source tree and selects documents with a Matcher.
type Discovery struct {
	root    string
	matcher *Matcher
}

// NewDiscovery creates a discovery rooted at root.
func NewDiscovery(root string, matcher *Matcher) *Discovery {
	return &Discovery{root: root, matcher: matcher}
}

// Discover returns every matching document ordered lexicographically by
// relative path. Hidden files and directories are never documents. Excluded
// directories are not descended into.
func (d *Discovery) Discover(ctx context.Context) ([]Document, error) {
	root, err := filepath.Abs(d.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", derrors.ErrSourceRootUnreadable, d.root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", derrors.ErrSourceRootUnreadable, d.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", derrors.ErrSourceRootUnreadable, d.root)
	}

	var docs []Document
	walkErr := filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return fmt.Errorf("%w: %s: %w", derrors.ErrSourceRootUnreadable, d.root, err)
			}
			return fmt.Errorf("%w: %s: %w", derrors.ErrDocsDirWalkFailed, p, err)
		}
		if p == root {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("%w: %w", derrors.ErrInvalidRelativePath, err)
		}
		rel = filepath.ToSlash(rel)

		if strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			if d.matcher.ExcludedDir(rel) {
				slog.Debug("Skipping excluded directory", logfields.Path(rel))
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() || !d.matcher.Match(rel) {
			return nil
		}

		docs = append(docs, newDocument(p, rel))
		slog.Debug("Discovered document", logfields.Path(rel))
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].RelPath < docs[j].RelPath })
	slog.Info("Documents discovered", logfields.Source(d.root), logfields.Count(len(docs)))
	return docs, nil
}

func newDocument(abs, rel string) Document {
	base := path.Base(rel)
	section := path.Dir(rel)
	if section == "." {
		section = ""
	}
	return Document{
		RelPath: rel,
		Path:    abs,
		Name:    strings.TrimSuffix(base, path.Ext(base)),
		Section: section,
	}
}

// ReadContent loads the document's bytes.
func (doc Document) ReadContent() ([]byte, error) {
	content, err := os.ReadFile(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", derrors.ErrFileReadFailed, doc.RelPath, err)
	}
	return content, nil
}
