package git

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// ErrNotRepository indicates no Git repository encloses the given path.
var ErrNotRepository = errors.New("not inside a git repository")

// History resolves last commit times for files in one repository. Results are
// cached per path for the lifetime of the value.
type History struct {
	repo *git.Repository
	root string

	mu    sync.Mutex
	cache map[string]commitTime
}

type commitTime struct {
	when time.Time
	ok   bool
}

// OpenHistory opens the repository enclosing path, searching parent
// directories for .git.
func OpenHistory(path string) (*History, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, path)
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	root := wt.Filesystem.Root()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	return &History{repo: repo, root: root, cache: map[string]commitTime{}}, nil
}

// Root returns the worktree root directory.
func (h *History) Root() string { return h.root }

// LastCommitTime returns the committer time of the newest commit touching
// the file at absPath. ok is false when the file has never been committed or
// lies outside the worktree.
func (h *History) LastCommitTime(absPath string) (when time.Time, ok bool, err error) {
	rel, inside := h.relative(absPath)
	if !inside {
		return time.Time{}, false, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if c, cached := h.cache[rel]; cached {
		return c.when, c.ok, nil
	}

	c, err := h.lookup(rel)
	if err != nil {
		return time.Time{}, false, err
	}
	h.cache[rel] = c
	return c.when, c.ok, nil
}

// lookup walks history newest first by committer time and returns the first
// commit whose version of rel differs from every parent's. A merge that took
// the file unchanged from one side is skipped in favor of that side's commit.
func (h *History) lookup(rel string) (commitTime, error) {
	iter, err := h.repo.Log(&git.LogOptions{Order: git.LogOrderCommitterTime})
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			// Empty repository: nothing is committed yet.
			return commitTime{}, nil
		}
		return commitTime{}, fmt.Errorf("git log %s: %w", rel, err)
	}
	defer iter.Close()

	var found commitTime
	err = iter.ForEach(func(c *object.Commit) error {
		changed, err := introduces(c, rel)
		if err != nil {
			return err
		}
		if changed {
			found = commitTime{when: c.Committer.When, ok: true}
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return commitTime{}, fmt.Errorf("git log %s: %w", rel, err)
	}
	return found, nil
}

// introduces reports whether c carries rel with content no parent has.
func introduces(c *object.Commit, rel string) (bool, error) {
	hash, ok, err := blobAt(c, rel)
	if err != nil || !ok {
		return false, err
	}
	same := false
	err = c.Parents().ForEach(func(p *object.Commit) error {
		parentHash, ok, err := blobAt(p, rel)
		if err != nil {
			return err
		}
		if ok && parentHash == hash {
			same = true
			return storer.ErrStop
		}
		return nil
	})
	return !same, err
}

func blobAt(c *object.Commit, rel string) (plumbing.Hash, bool, error) {
	tree, err := c.Tree()
	if err != nil {
		return plumbing.ZeroHash, false, err
	}
	entry, err := tree.FindEntry(rel)
	switch {
	case err == nil:
		return entry.Hash, true, nil
	case errors.Is(err, object.ErrEntryNotFound),
		errors.Is(err, object.ErrDirectoryNotFound),
		errors.Is(err, plumbing.ErrObjectNotFound):
		return plumbing.ZeroHash, false, nil
	default:
		return plumbing.ZeroHash, false, err
	}
}

func (h *History) relative(absPath string) (string, bool) {
	p, err := filepath.Abs(absPath)
	if err != nil {
		return "", false
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	}
	rel, err := filepath.Rel(h.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
