package workspace

import (
	"context"
	"fmt"
	"sync"

	"github.com/Ning0612/typnote/internal/domain"
	"github.com/Ning0612/typnote/internal/logger"
	"github.com/Ning0612/typnote/internal/mutator"
	"github.com/Ning0612/typnote/internal/state"
	"github.com/Ning0612/typnote/internal/tree"
)

// Recorder journals mutations; state.Manager implements it
type Recorder interface {
	SaveOperation(record state.OperationRecord) error
}

// Session is the in-memory view of one open space. It keeps the last
// successfully loaded snapshot: a failed reload or mutation never replaces it.
type Session struct {
	loader   *tree.Loader
	mutator  *mutator.Mutator
	notifier Notifier
	recorder Recorder

	mu       sync.RWMutex
	space    domain.Space
	snapshot []domain.Entry
	loaded   bool
}

// NewSession creates a session with nothing open
func NewSession(loader *tree.Loader, m *mutator.Mutator, notifier Notifier) *Session {
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	return &Session{
		loader:   loader,
		mutator:  m,
		notifier: notifier,
		snapshot: []domain.Entry{},
	}
}

// SetRecorder journals every mutation outcome to r
func (s *Session) SetRecorder(r Recorder) {
	s.recorder = r
}

// Space returns the open space
func (s *Session) Space() domain.Space {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.space
}

// Loaded reports whether any load has succeeded for the open space
func (s *Session) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Snapshot returns a copy of the current tree
func (s *Session) Snapshot() []domain.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tree.Clone(s.snapshot)
}

// Switch opens space, discarding the previous tree, and loads it
func (s *Session) Switch(ctx context.Context, space domain.Space) error {
	if err := space.Validate(); err != nil {
		s.notifier.Notify(failure("open space", err))
		return err
	}

	s.mu.Lock()
	s.space = space
	s.snapshot = []domain.Entry{}
	s.loaded = false
	s.mu.Unlock()

	logger.Get().Info("space opened", "space", space.Name, "root", space.RootPath)
	return s.Refresh(ctx)
}

// Refresh reloads the whole tree. On failure the previous snapshot stays.
func (s *Session) Refresh(ctx context.Context) error {
	space := s.Space()
	if space.RootPath == "" {
		return domain.ErrNoActiveSpace
	}

	entries, err := s.loader.Load(ctx, space.RootPath)
	if err != nil {
		logger.Get().Error("failed to load tree", "space", space.Name, "error", err)
		s.notifier.Notify(failure("load", err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.space.RootPath != space.RootPath {
		// switched while loading; the newer space owns the snapshot
		return nil
	}
	s.snapshot = entries
	s.loaded = true
	return nil
}

// CreateFile creates a new file under dir, or the root when dir is empty
func (s *Session) CreateFile(ctx context.Context, dir string) (string, error) {
	root, err := s.root()
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = root
	}
	path, err := s.mutator.CreateFile(ctx, root, dir)
	return path, s.finish(ctx, mutator.OpCreateFile, root, dir, path, err)
}

// CreateFolder creates a new folder under dir, or the root when dir is empty
func (s *Session) CreateFolder(ctx context.Context, dir string) (string, error) {
	root, err := s.root()
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = root
	}
	path, err := s.mutator.CreateFolder(ctx, root, dir)
	return path, s.finish(ctx, mutator.OpCreateFolder, root, dir, path, err)
}

// Rename renames the entry at path to newName
func (s *Session) Rename(ctx context.Context, path, newName string) (string, error) {
	root, err := s.root()
	if err != nil {
		return "", err
	}
	dest, err := s.mutator.Rename(ctx, root, path, newName)
	return dest, s.finish(ctx, mutator.OpRename, root, path, dest, err)
}

// Delete removes the entry at path; the caller has already confirmed
func (s *Session) Delete(ctx context.Context, path string) error {
	root, err := s.root()
	if err != nil {
		return err
	}
	err = s.mutator.Delete(ctx, root, path)
	return s.finish(ctx, mutator.OpDelete, root, path, "", err)
}

// Duplicate copies the entry at path next to itself
func (s *Session) Duplicate(ctx context.Context, path string) (string, error) {
	root, err := s.root()
	if err != nil {
		return "", err
	}
	dest, err := s.mutator.Duplicate(ctx, root, path)
	return dest, s.finish(ctx, mutator.OpDuplicate, root, path, dest, err)
}

func (s *Session) root() (string, error) {
	root := s.Space().RootPath
	if root == "" {
		s.notifier.Notify(failure("open space", domain.ErrNoActiveSpace))
		return "", domain.ErrNoActiveSpace
	}
	return root, nil
}

// finish journals and reports a mutation, then reloads after a success
func (s *Session) finish(ctx context.Context, op, root, path, result string, opErr error) error {
	s.record(op, root, path, result, opErr)

	if opErr != nil {
		logger.Get().Warn("mutation failed", "op", op, "path", path, "kind", domain.Kind(opErr), "error", opErr)
		s.notifier.Notify(failure(op, opErr))
		return opErr
	}

	s.notifier.Notify(success(op, successMessage(op, path, result)))
	// the mutation happened; a failed reload is reported on its own
	if err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("%s succeeded but reload failed: %w", op, err)
	}
	return nil
}

func (s *Session) record(op, root, path, result string, opErr error) {
	if s.recorder == nil {
		return
	}
	rec := state.OperationRecord{Root: root, Op: op, Path: path, Result: result, Status: state.StatusSuccess}
	if opErr != nil {
		rec.Status = state.StatusFailed
		rec.Error = opErr.Error()
	}
	if err := s.recorder.SaveOperation(rec); err != nil {
		logger.Get().Warn("failed to journal operation", "op", op, "error", err)
	}
}

func successMessage(op, path, result string) string {
	switch op {
	case mutator.OpCreateFile:
		return "Created file " + result
	case mutator.OpCreateFolder:
		return "Created folder " + result
	case mutator.OpRename:
		return fmt.Sprintf("Renamed %s to %s", path, result)
	case mutator.OpDelete:
		return "Deleted " + path
	case mutator.OpDuplicate:
		return "Duplicated to " + result
	}
	return op + " succeeded"
}
