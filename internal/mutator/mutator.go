package mutator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Ning0612/typnote/internal/adapter"
	"github.com/Ning0612/typnote/internal/core/checksum"
	"github.com/Ning0612/typnote/internal/domain"
	"github.com/Ning0612/typnote/internal/lock"
	"github.com/Ning0612/typnote/internal/logger"
	"github.com/Ning0612/typnote/internal/progress"
	"github.com/Ning0612/typnote/internal/tree"
)

// Operation names carried by domain.OpError
const (
	OpCreateFile   = "create file"
	OpCreateFolder = "create folder"
	OpRename       = "rename"
	OpDelete       = "delete"
	OpDuplicate    = "duplicate"
)

const tempSuffix = ".typnote-tmp"

// Options controls generated names
type Options struct {
	Extension       string
	NewFilePrefix   string
	NewFolderPrefix string
	CopySuffix      string
}

// DefaultOptions returns "New File <stamp>.typ", "New Folder <stamp>" and "_copy"
func DefaultOptions() Options {
	return Options{
		Extension:       ".typ",
		NewFilePrefix:   "New File",
		NewFolderPrefix: "New Folder",
		CopySuffix:      "_copy",
	}
}

// Mutator applies create, rename, delete and duplicate to a workspace.
// Mutations on the same root run one at a time.
type Mutator struct {
	fs    adapter.FS
	opts  Options
	locks *lock.Keyed
	sums  *checksum.Calculator
	now   func() time.Time

	reporter progress.Reporter

	stampMu   sync.Mutex
	lastStamp int64
}

// New creates a mutator writing through fs
func New(fs adapter.FS, opts Options) *Mutator {
	def := DefaultOptions()
	if opts.NewFilePrefix == "" {
		opts.NewFilePrefix = def.NewFilePrefix
	}
	if opts.NewFolderPrefix == "" {
		opts.NewFolderPrefix = def.NewFolderPrefix
	}
	if opts.CopySuffix == "" {
		opts.CopySuffix = def.CopySuffix
	}
	if opts.Extension != "" && !strings.HasPrefix(opts.Extension, ".") {
		opts.Extension = "." + opts.Extension
	}

	return &Mutator{
		fs:    fs,
		opts:  opts,
		locks: lock.NewKeyed(),
		sums:  checksum.NewDefaultCalculator(),
		now:   time.Now,

		reporter: progress.NullReporter{},
	}
}

// SetReporter receives one Start and Complete or Error per copied file
func (m *Mutator) SetReporter(r progress.Reporter) {
	if r == nil {
		r = progress.NullReporter{}
	}
	m.reporter = r
}

// SetClock replaces the time source used for generated names
func (m *Mutator) SetClock(now func() time.Time) {
	m.now = now
}

// nextStamp returns a millisecond timestamp strictly greater than the last one
func (m *Mutator) nextStamp() int64 {
	m.stampMu.Lock()
	defer m.stampMu.Unlock()

	stamp := m.now().UnixMilli()
	if stamp <= m.lastStamp {
		stamp = m.lastStamp + 1
	}
	m.lastStamp = stamp
	return stamp
}

// begin checks that target lies within root and takes the root's lock.
// into marks target as the directory the operation writes into; otherwise
// only its parent must be reached without passing through a link.
func (m *Mutator) begin(ctx context.Context, op, root, target string, into bool) (func(), error) {
	if root == "" || target == "" {
		return nil, domain.NewOpError(op, target, domain.ErrInvalidPath)
	}
	if !tree.Within(root, target) {
		return nil, domain.NewOpError(op, target,
			fmt.Errorf("%w: outside workspace %s", domain.ErrPermissionDenied, root))
	}

	unlock, err := m.locks.Lock(ctx, root)
	if err != nil {
		return nil, domain.NewOpError(op, target, err)
	}

	dir := filepath.Clean(target)
	if !into && dir != filepath.Clean(root) {
		dir = filepath.Dir(dir)
	}
	if err := m.checkLinks(ctx, root, dir); err != nil {
		unlock()
		return nil, domain.NewOpError(op, target, err)
	}
	return unlock, nil
}

// checkLinks walks from root down to dir and rejects any directory on the
// way that is a symbolic link, since it may lead outside the workspace.
// The walk stops quietly at the first missing component.
func (m *Mutator) checkLinks(ctx context.Context, root, dir string) error {
	root = filepath.Clean(root)
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return nil
	}

	cur := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = tree.JoinPath(cur, part)
		info, err := m.fs.Lstat(ctx, cur)
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNotDirectory) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.IsSymlink {
			return fmt.Errorf("%w: %s is a symbolic link", domain.ErrPermissionDenied, cur)
		}
	}
	return nil
}

// CreateFile creates an empty file with a generated name under dir and
// returns its path
func (m *Mutator) CreateFile(ctx context.Context, root, dir string) (string, error) {
	unlock, err := m.begin(ctx, OpCreateFile, root, dir, true)
	if err != nil {
		return "", err
	}
	defer unlock()

	name := fmt.Sprintf("%s %d%s", m.opts.NewFilePrefix, m.nextStamp(), m.opts.Extension)
	path := tree.JoinPath(dir, name)

	if err := m.fs.CreateFile(ctx, path); err != nil {
		return "", domain.NewOpError(OpCreateFile, path, err)
	}

	logger.Get().Info("file created", "path", path)
	return path, nil
}

// CreateFolder creates a directory with a generated name under dir and
// returns its path
func (m *Mutator) CreateFolder(ctx context.Context, root, dir string) (string, error) {
	unlock, err := m.begin(ctx, OpCreateFolder, root, dir, true)
	if err != nil {
		return "", err
	}
	defer unlock()

	name := fmt.Sprintf("%s %d", m.opts.NewFolderPrefix, m.nextStamp())
	path := tree.JoinPath(dir, name)

	exists, err := m.fs.Exists(ctx, path)
	if err != nil {
		return "", domain.NewOpError(OpCreateFolder, path, err)
	}
	if exists {
		return "", domain.NewOpError(OpCreateFolder, path, domain.ErrAlreadyExists)
	}
	if err := m.fs.Mkdir(ctx, path, true); err != nil {
		return "", domain.NewOpError(OpCreateFolder, path, err)
	}

	logger.Get().Info("folder created", "path", path)
	return path, nil
}

// Rename gives the entry at path the sibling name newName and returns the
// new path. An occupied destination fails with domain.ErrNameConflict and
// leaves both entries untouched.
func (m *Mutator) Rename(ctx context.Context, root, path, newName string) (string, error) {
	if err := ValidateName(newName); err != nil {
		return "", domain.NewOpError(OpRename, path, err)
	}
	unlock, err := m.begin(ctx, OpRename, root, path, false)
	if err != nil {
		return "", err
	}
	defer unlock()

	path = filepath.Clean(path)
	if path == filepath.Clean(root) {
		return "", domain.NewOpError(OpRename, path,
			fmt.Errorf("%w: cannot rename the workspace root", domain.ErrPermissionDenied))
	}

	exists, err := m.fs.Exists(ctx, path)
	if err != nil {
		return "", domain.NewOpError(OpRename, path, err)
	}
	if !exists {
		return "", domain.NewOpError(OpRename, path, domain.ErrNotFound)
	}

	if filepath.Base(path) == newName {
		return path, nil
	}

	dest := tree.JoinPath(filepath.Dir(path), newName)
	taken, err := m.fs.Exists(ctx, dest)
	if err != nil {
		return "", domain.NewOpError(OpRename, path, err)
	}
	if taken {
		return "", domain.NewOpError(OpRename, dest, domain.ErrNameConflict)
	}

	if err := m.fs.Rename(ctx, path, dest); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			err = domain.ErrNameConflict
		}
		return "", domain.NewOpError(OpRename, path, err)
	}

	logger.Get().Info("entry renamed", "from", path, "to", dest)
	return dest, nil
}

// Delete removes the entry at path, recursively for directories.
// Confirmation is the caller's job.
func (m *Mutator) Delete(ctx context.Context, root, path string) error {
	unlock, err := m.begin(ctx, OpDelete, root, path, false)
	if err != nil {
		return err
	}
	defer unlock()

	path = filepath.Clean(path)
	if path == filepath.Clean(root) {
		return domain.NewOpError(OpDelete, path,
			fmt.Errorf("%w: cannot delete the workspace root", domain.ErrPermissionDenied))
	}

	info, err := m.fs.Lstat(ctx, path)
	if err != nil {
		return domain.NewOpError(OpDelete, path, err)
	}
	if err := m.fs.Remove(ctx, path, info.IsDirectory); err != nil {
		return domain.NewOpError(OpDelete, path, err)
	}

	logger.Get().Info("entry deleted", "path", path, "directory", info.IsDirectory)
	return nil
}

// Duplicate deep copies the entry at path to a sibling named path+"_copy"
// and returns the copy's path. The copy is assembled under a hidden
// temporary name and renamed into place, so a failure leaves nothing behind.
func (m *Mutator) Duplicate(ctx context.Context, root, path string) (string, error) {
	unlock, err := m.begin(ctx, OpDuplicate, root, path, false)
	if err != nil {
		return "", err
	}
	defer unlock()

	path = filepath.Clean(path)
	if path == filepath.Clean(root) {
		return "", domain.NewOpError(OpDuplicate, path,
			fmt.Errorf("%w: cannot duplicate the workspace root", domain.ErrPermissionDenied))
	}

	info, err := m.fs.Lstat(ctx, path)
	if err != nil {
		return "", domain.NewOpError(OpDuplicate, path, err)
	}

	dest := path + m.opts.CopySuffix
	taken, err := m.fs.Exists(ctx, dest)
	if err != nil {
		return "", domain.NewOpError(OpDuplicate, path, err)
	}
	if taken {
		return "", domain.NewOpError(OpDuplicate, dest, domain.ErrNameConflict)
	}

	tmp := tree.JoinPath(filepath.Dir(dest), "."+filepath.Base(dest)+tempSuffix)
	m.discard(tmp)

	if err := m.copyEntry(ctx, path, tmp, info); err != nil {
		m.discard(tmp)
		return "", domain.NewOpError(OpDuplicate, path, err)
	}
	if err := m.fs.Rename(ctx, tmp, dest); err != nil {
		m.discard(tmp)
		if errors.Is(err, domain.ErrAlreadyExists) {
			err = domain.ErrNameConflict
		}
		return "", domain.NewOpError(OpDuplicate, path, err)
	}

	logger.Get().Info("entry duplicated", "from", path, "to", dest, "directory", info.IsDirectory)
	return dest, nil
}

// copyEntry copies src to dst, descending into directories.
// Links are recreated with the same target, never followed.
func (m *Mutator) copyEntry(ctx context.Context, src, dst string, kind domain.DirEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch {
	case kind.IsSymlink:
		return m.copyLink(ctx, src, dst)
	case !kind.IsDirectory:
		return m.copyFile(ctx, src, dst)
	}

	if err := m.fs.Mkdir(ctx, dst, false); err != nil {
		return err
	}
	children, err := m.fs.List(ctx, src)
	if err != nil {
		return err
	}
	for _, child := range children {
		err := m.copyEntry(ctx,
			tree.JoinPath(src, child.Name),
			tree.JoinPath(dst, child.Name),
			child)
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Mutator) copyLink(ctx context.Context, src, dst string) error {
	target, err := m.fs.ReadLink(ctx, src)
	if err != nil {
		return err
	}
	if err := m.fs.Symlink(ctx, target, dst); err != nil {
		return err
	}
	logger.Get().Debug("link copied", "path", src, "target", target)
	return nil
}

// copyFile copies content and verifies the written bytes by SHA-256
func (m *Mutator) copyFile(ctx context.Context, src, dst string) error {
	data, err := m.fs.ReadFile(ctx, src)
	if err != nil {
		return err
	}

	m.reporter.Start(src, int64(len(data)))
	if err := m.writeVerified(ctx, src, dst, data); err != nil {
		m.reporter.Error(err)
		return err
	}
	m.reporter.Complete()
	return nil
}

func (m *Mutator) writeVerified(ctx context.Context, src, dst string, data []byte) error {
	if err := m.fs.WriteFile(ctx, dst, data); err != nil {
		return err
	}

	want, err := m.sums.Bytes(ctx, data, checksum.SHA256)
	if errors.Is(err, checksum.ErrTooLarge) {
		logger.Get().Debug("copy not verified", "path", src, "error", err)
		return nil
	}
	if err != nil {
		return err
	}

	written, err := m.fs.ReadFile(ctx, dst)
	if err != nil {
		return err
	}
	got, err := m.sums.Bytes(ctx, written, checksum.SHA256)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: checksum mismatch copying %s", domain.ErrIOError, src)
	}
	return nil
}

// discard removes a leftover temporary copy, ignoring a missing one
func (m *Mutator) discard(path string) {
	err := m.fs.Remove(context.Background(), path, true)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Get().Warn("failed to remove temporary copy", "path", path, "error", err)
	}
}

// ValidateName accepts a single non-empty path element
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name is empty", domain.ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q is reserved", domain.ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, filepath.Separator):
		return fmt.Errorf("%w: %q contains a path separator", domain.ErrInvalidName, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: name contains NUL", domain.ErrInvalidName)
	}
	return nil
}
