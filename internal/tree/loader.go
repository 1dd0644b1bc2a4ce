package tree

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/Ning0612/typnote/internal/adapter"
	"github.com/Ning0612/typnote/internal/domain"
	"github.com/Ning0612/typnote/internal/logger"
)

// FailurePolicy decides what a failed subdirectory listing does to a load
type FailurePolicy string

const (
	// PolicySkip records the directory with no children and keeps walking
	PolicySkip FailurePolicy = "skip"
	// PolicyAbort fails the whole load
	PolicyAbort FailurePolicy = "abort"
)

// ParseFailurePolicy validates a configured policy name
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case PolicySkip, PolicyAbort:
		return FailurePolicy(s), nil
	case "":
		return PolicySkip, nil
	}
	return "", fmt.Errorf("%w: unknown failure policy %q", domain.ErrConfigInvalid, s)
}

// Options configures a Loader
type Options struct {
	FailurePolicy FailurePolicy

	// MaxDepth bounds how many directory levels below the root are listed.
	// Zero means unbounded.
	MaxDepth int

	// HiddenPrefix excludes entries whose name starts with it
	HiddenPrefix string

	// IgnoreFile names a gitignore-style file in the root whose patterns
	// also exclude entries. Empty disables it; a missing file is fine.
	IgnoreFile string
}

// DefaultIgnoreFile is read from the workspace root when present
const DefaultIgnoreFile = ".typnoteignore"

// IgnoreChecker matches slash-separated paths relative to the root
type IgnoreChecker interface {
	MatchesPath(path string) bool
}

// DefaultOptions returns the recommended loader options
func DefaultOptions() Options {
	return Options{
		FailurePolicy: PolicySkip,
		MaxDepth:      64,
		HiddenPrefix:  ".",
		IgnoreFile:    DefaultIgnoreFile,
	}
}

// Loader builds the Entry tree of a workspace root
type Loader struct {
	fs   adapter.FS
	opts Options
}

// NewLoader creates a loader reading through fs
func NewLoader(fs adapter.FS, opts Options) *Loader {
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = PolicySkip
	}
	return &Loader{fs: fs, opts: opts}
}

// Options returns the loader configuration
func (l *Loader) Options() Options {
	return l.opts
}

// Load walks root and returns its non-hidden children, recursively.
// The root itself is not part of the result. Entries keep the order the
// filesystem lists them in.
func (l *Loader) Load(ctx context.Context, root string) ([]domain.Entry, error) {
	if root == "" {
		return nil, domain.NewOpError("load", root, domain.ErrInvalidPath)
	}

	info, err := l.fs.Stat(ctx, root)
	if err != nil {
		return nil, domain.NewOpError("load", root, err)
	}
	if !info.IsDirectory {
		return nil, domain.NewOpError("load", root, domain.ErrNotDirectory)
	}

	ignored, err := l.ignoreRules(ctx, root)
	if err != nil {
		return nil, domain.NewOpError("load", root, err)
	}

	w := walker{Loader: l, root: root, ignored: ignored}
	entries, err := w.walk(ctx, root, 0)
	if err != nil {
		return nil, err
	}

	logger.Get().Debug("tree loaded", "root", root, "entries", Count(entries))
	return entries, nil
}

// ignoreRules compiles the root's ignore file, or returns nil without one
func (l *Loader) ignoreRules(ctx context.Context, root string) (IgnoreChecker, error) {
	if l.opts.IgnoreFile == "" {
		return nil, nil
	}

	path := JoinPath(root, l.opts.IgnoreFile)
	data, err := l.fs.ReadFile(ctx, path)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNotFile) {
		return nil, nil
	}
	if err != nil {
		if isContextErr(err) || l.opts.FailurePolicy == PolicyAbort {
			return nil, err
		}
		logger.Get().Warn("ignore file unreadable, loading without it", "path", path, "error", err)
		return nil, nil
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	return ignore.CompileIgnoreLines(lines...), nil
}

// walker carries per-load state through the recursion
type walker struct {
	*Loader
	root    string
	ignored IgnoreChecker
}

// skip reports whether a listed entry is left out of the tree
func (w walker) skip(path, name string, isDir bool) bool {
	if IsHidden(name, w.opts.HiddenPrefix) {
		return true
	}
	if w.ignored == nil {
		return false
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if w.ignored.MatchesPath(rel) {
		return true
	}
	return isDir && w.ignored.MatchesPath(rel+"/")
}

// walk lists dir, which sits depth levels below the root
func (w walker) walk(ctx context.Context, dir string, depth int) ([]domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if w.opts.MaxDepth > 0 && depth > w.opts.MaxDepth {
		return nil, domain.NewOpError("load", dir, domain.ErrMaxDepth)
	}

	listing, err := w.fs.List(ctx, dir)
	if err != nil {
		if isContextErr(err) {
			return nil, err
		}
		return nil, domain.NewOpError("load", dir, err)
	}

	entries := make([]domain.Entry, 0, len(listing))
	for _, de := range listing {
		path := JoinPath(dir, de.Name)
		if w.skip(path, de.Name, de.IsDirectory) {
			continue
		}

		if !de.IsDirectory {
			entries = append(entries, domain.NewFile(de.Name, path))
			continue
		}

		children, err := w.walk(ctx, path, depth+1)
		if err != nil {
			if isContextErr(err) || w.opts.FailurePolicy == PolicyAbort {
				return nil, err
			}
			logger.Get().Warn("skipping unreadable directory",
				"path", path,
				"kind", domain.Kind(err),
				"error", err)
			children = nil
		}
		entries = append(entries, domain.NewDirectory(de.Name, path, children))
	}

	return entries, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
