package adapter

import (
	"context"

	"github.com/Ning0612/typnote/internal/domain"
)

// FS is the filesystem capability the tree loader and mutator work through.
// Paths are absolute OS paths. Implementations return domain-level errors
// (domain.ErrNotFound, domain.ErrPermissionDenied, domain.ErrAlreadyExists,
// domain.ErrIOError) so callers can classify failures without inspecting
// platform errors.
type FS interface {
	// List returns the entries directly under path in listing order
	// Returns domain.ErrNotFound if path doesn't exist
	// Returns domain.ErrNotDirectory if path is a file
	List(ctx context.Context, path string) ([]domain.DirEntry, error)

	// ReadFile returns the full content of a file
	// Returns domain.ErrNotFile if path is a directory
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WriteFile creates or overwrites a file
	// The parent directory must exist
	WriteFile(ctx context.Context, path string, content []byte) error

	// CreateFile creates an empty file
	// Returns domain.ErrAlreadyExists if anything exists at path
	// Returns domain.ErrNotFound if the parent directory is missing
	CreateFile(ctx context.Context, path string) error

	// Mkdir creates a directory; recursive also creates missing parents
	// and tolerates an existing directory
	Mkdir(ctx context.Context, path string, recursive bool) error

	// Rename moves oldPath to newPath
	// Returns domain.ErrAlreadyExists if newPath exists
	Rename(ctx context.Context, oldPath, newPath string) error

	// Remove deletes a file or directory; recursive removes descendants
	// Returns domain.ErrNotFound if path doesn't exist
	Remove(ctx context.Context, path string, recursive bool) error

	// Exists checks if anything, including a dangling link, is at path
	Exists(ctx context.Context, path string) (bool, error)

	// Stat returns the kind of the entry at path, following a final link
	Stat(ctx context.Context, path string) (domain.DirEntry, error)

	// Lstat is Stat without following a final link
	Lstat(ctx context.Context, path string) (domain.DirEntry, error)

	// ReadLink returns the target of the link at path
	ReadLink(ctx context.Context, path string) (string, error)

	// Symlink creates a link at path pointing to target
	// Returns domain.ErrAlreadyExists if anything exists at path
	Symlink(ctx context.Context, target, path string) error
}
