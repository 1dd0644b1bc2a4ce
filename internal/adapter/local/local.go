package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"

	"github.com/Ning0612/typnote/internal/adapter"
	"github.com/Ning0612/typnote/internal/domain"
)

// Adapter implements adapter.FS on top of an afero filesystem
type Adapter struct {
	fs afero.Fs
}

var _ adapter.FS = (*Adapter)(nil)

// New creates an adapter over the given afero filesystem
func New(fsys afero.Fs) *Adapter {
	return &Adapter{fs: fsys}
}

// NewOS creates an adapter over the host filesystem
func NewOS() *Adapter {
	return New(afero.NewOsFs())
}

// Fs exposes the underlying afero filesystem
func (a *Adapter) Fs() afero.Fs {
	return a.fs
}

// List returns the entries directly under path.
// Symlinks are reported as files and never followed, so a listing
// cannot lead the tree walk into a cycle.
func (a *Adapter) List(ctx context.Context, path string) ([]domain.DirEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := a.fs.Stat(path)
	if err != nil {
		return nil, a.mapError(err)
	}
	if !info.IsDir() {
		return nil, domain.ErrNotDirectory
	}

	infos, err := afero.ReadDir(a.fs, path)
	if err != nil {
		return nil, a.mapError(err)
	}

	entries := make([]domain.DirEntry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, dirEntryFromInfo(fi))
	}
	return entries, nil
}

// ReadFile returns the full content of a file
func (a *Adapter) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := a.fs.Stat(path)
	if err != nil {
		return nil, a.mapError(err)
	}
	if info.IsDir() {
		return nil, domain.ErrNotFile
	}

	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return nil, a.mapError(err)
	}
	return data, nil
}

// WriteFile creates or overwrites a file through a temp file and rename
func (a *Adapter) WriteFile(ctx context.Context, path string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.requireParent(path); err != nil {
		return err
	}

	tempPath := path + ".typnote.tmp"
	if err := afero.WriteFile(a.fs, tempPath, content, 0644); err != nil {
		a.fs.Remove(tempPath)
		return a.mapError(err)
	}

	if err := a.fs.Rename(tempPath, path); err != nil {
		a.fs.Remove(tempPath)
		return a.mapError(err)
	}
	return nil
}

// CreateFile creates an empty file, failing if anything already exists at path
func (a *Adapter) CreateFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.requireParent(path); err != nil {
		return err
	}

	f, err := a.fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return a.mapError(err)
	}
	return a.mapError(f.Close())
}

// Mkdir creates a directory
func (a *Adapter) Mkdir(ctx context.Context, path string, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if recursive {
		if info, err := a.fs.Stat(path); err == nil && !info.IsDir() {
			return domain.ErrAlreadyExists
		}
		return a.mapError(a.fs.MkdirAll(path, 0755))
	}

	if err := a.requireParent(path); err != nil {
		return err
	}
	if exists, err := a.Exists(ctx, path); err != nil {
		return err
	} else if exists {
		return domain.ErrAlreadyExists
	}
	return a.mapError(a.fs.Mkdir(path, 0755))
}

// Rename moves oldPath to newPath without overwriting
func (a *Adapter) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := a.lstat(oldPath); err != nil {
		return a.mapError(err)
	}
	if exists, err := a.Exists(ctx, newPath); err != nil {
		return err
	} else if exists {
		return domain.ErrAlreadyExists
	}
	if err := a.requireParent(newPath); err != nil {
		return err
	}

	return a.mapError(a.fs.Rename(oldPath, newPath))
}

// Remove deletes a file or directory
func (a *Adapter) Remove(ctx context.Context, path string, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// RemoveAll succeeds on missing paths, so check first
	if _, err := a.lstat(path); err != nil {
		return a.mapError(err)
	}

	if recursive {
		return a.mapError(a.fs.RemoveAll(path))
	}
	return a.mapError(a.fs.Remove(path))
}

// Exists checks if anything, including a dangling link, is at path
func (a *Adapter) Exists(ctx context.Context, path string) (bool, error) {
	_, err := a.lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, a.mapError(err)
}

// Stat returns the kind of the entry at path, following a final link
func (a *Adapter) Stat(ctx context.Context, path string) (domain.DirEntry, error) {
	info, err := a.fs.Stat(path)
	if err != nil {
		return domain.DirEntry{}, a.mapError(err)
	}
	return dirEntryFromInfo(info), nil
}

// Lstat returns the kind of the entry at path without following a final link.
// Filesystems without link support fall back to Stat.
func (a *Adapter) Lstat(ctx context.Context, path string) (domain.DirEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.DirEntry{}, err
	}

	info, err := a.lstat(path)
	if err != nil {
		return domain.DirEntry{}, a.mapError(err)
	}
	return dirEntryFromInfo(info), nil
}

func (a *Adapter) lstat(path string) (os.FileInfo, error) {
	if lst, ok := a.fs.(afero.Lstater); ok {
		info, _, err := lst.LstatIfPossible(path)
		return info, err
	}
	return a.fs.Stat(path)
}

// ReadLink returns the target of the link at path
func (a *Adapter) ReadLink(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	lr, ok := a.fs.(afero.LinkReader)
	if !ok {
		return "", fmt.Errorf("%w: %v", domain.ErrIOError, afero.ErrNoReadlink)
	}
	target, err := lr.ReadlinkIfPossible(path)
	if err != nil {
		return "", a.mapError(err)
	}
	return target, nil
}

// Symlink creates a link at path pointing to target
func (a *Adapter) Symlink(ctx context.Context, target, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.requireParent(path); err != nil {
		return err
	}

	linker, ok := a.fs.(afero.Linker)
	if !ok {
		return fmt.Errorf("%w: %v", domain.ErrIOError, afero.ErrNoSymlink)
	}
	return a.mapError(linker.SymlinkIfPossible(target, path))
}

// requireParent verifies the parent directory of path exists
func (a *Adapter) requireParent(path string) error {
	parent := filepath.Dir(path)
	info, err := a.fs.Stat(parent)
	if err != nil {
		return a.mapError(err)
	}
	if !info.IsDir() {
		return domain.ErrNotDirectory
	}
	return nil
}

// dirEntryFromInfo converts os.FileInfo to domain.DirEntry
func dirEntryFromInfo(info os.FileInfo) domain.DirEntry {
	link := info.Mode()&os.ModeSymlink != 0
	isDir := info.IsDir() && !link
	return domain.DirEntry{
		Name:        info.Name(),
		IsDirectory: isDir,
		IsFile:      !isDir,
		IsSymlink:   link,
	}
}

// mapError converts OS errors to domain errors
func (a *Adapter) mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, syscall.ENOTEMPTY):
		// syscall maps ENOTEMPTY to fs.ErrExist; it is not a name clash
		return fmt.Errorf("%w: directory not empty", domain.ErrIOError)
	case errors.Is(err, fs.ErrNotExist):
		return domain.ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return domain.ErrPermissionDenied
	case errors.Is(err, fs.ErrExist):
		return domain.ErrAlreadyExists
	case errors.Is(err, syscall.ENOTDIR):
		return domain.ErrNotDirectory
	}

	return fmt.Errorf("%w: %v", domain.ErrIOError, err)
}
