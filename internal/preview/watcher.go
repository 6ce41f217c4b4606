package preview

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// Watcher reports changes below a source tree, ignoring the output
// directory, hidden entries and editor scratch files.
type Watcher struct {
	w         *fsnotify.Watcher
	root      string
	outputDir string
	ignore    []string
}

// NewWatcher watches every directory below root except outputDir. Events for
// a path starting with one of ignore are dropped, so ignoring a database file
// also covers its -journal and -wal siblings.
func NewWatcher(root, outputDir string, ignore ...string) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absOut, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, err
	}
	var absIgnore []string
	for _, p := range ignore {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		absIgnore = append(absIgnore, abs)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{w: fw, root: absRoot, outputDir: absOut, ignore: absIgnore}
	if err := w.addDirsRecursive(w.root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// Run calls onChange for every relevant event until ctx is done or the
// watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			w.handle(ev, onChange)
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.w.Close()
}

func (w *Watcher) handle(ev fsnotify.Event, onChange func()) {
	if w.ignored(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addDirsRecursive(ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	onChange()
}

func (w *Watcher) addDirsRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return fmt.Errorf("watch %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root && (w.underOutput(p) || strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := w.w.Add(p); err != nil {
			slog.Warn("Watch add failed", logfields.Path(p), logfields.Error(err))
		}
		return nil
	})
}

func (w *Watcher) underOutput(p string) bool {
	rel, err := filepath.Rel(w.outputDir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ignored reports events that must not trigger a rebuild.
func (w *Watcher) ignored(p string) bool {
	if w.underOutput(p) {
		return true
	}
	for _, prefix := range w.ignore {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return shouldIgnoreEvent(p)
}

// shouldIgnoreEvent returns true for hidden, swap and temp files.
func shouldIgnoreEvent(p string) bool {
	base := filepath.Base(p)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db":
		return true
	}
	return false
}
