package domain

import (
	"errors"
	"fmt"
)

// Filesystem errors returned by adapters and the tree packages
var (
	// ErrNotFound indicates the requested entry does not exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entry already exists at the path
	ErrAlreadyExists = errors.New("already exists")

	// ErrNameConflict indicates a rename or duplicate destination is occupied.
	// errors.Is(ErrNameConflict, ErrAlreadyExists) reports true.
	ErrNameConflict = fmt.Errorf("name conflict: %w", ErrAlreadyExists)

	// ErrPermissionDenied indicates insufficient permissions or a path outside the workspace
	ErrPermissionDenied = errors.New("permission denied")

	// ErrIOError is the generic filesystem failure
	ErrIOError = errors.New("i/o error")

	// ErrNotDirectory indicates expected a directory but got a file
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotFile indicates expected a file but got a directory
	ErrNotFile = errors.New("not a file")

	// ErrInvalidPath indicates an empty or malformed path
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidName indicates a name that is not a single path element
	ErrInvalidName = errors.New("invalid name")

	// ErrMaxDepth indicates the tree walk exceeded its depth bound
	ErrMaxDepth = errors.New("maximum tree depth exceeded")
)

// Settings errors
var (
	// ErrSpaceNotFound indicates a workspace name or index that is not registered
	ErrSpaceNotFound = fmt.Errorf("space %w", ErrNotFound)

	// ErrNoActiveSpace indicates no workspace has been registered yet
	ErrNoActiveSpace = errors.New("no active space")
)

// Config errors
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")
)

// OpError records a failed tree operation together with its target path.
// It is what the view layer turns into a user-visible notification.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// NewOpError wraps err with the operation name and path. A nil err returns nil.
func NewOpError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Path: path, Err: err}
}

// Kind maps an error to the name of its taxonomy class
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNameConflict):
		return "NameConflict"
	case errors.Is(err, ErrAlreadyExists):
		return "AlreadyExists"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrPermissionDenied):
		return "PermissionDenied"
	default:
		return "IOError"
	}
}
