package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/Ning0612/typnote/internal/adapter/local"
	"github.com/Ning0612/typnote/internal/config"
	"github.com/Ning0612/typnote/internal/domain"
	"github.com/Ning0612/typnote/internal/lock"
	"github.com/Ning0612/typnote/internal/logger"
	"github.com/Ning0612/typnote/internal/mutator"
	"github.com/Ning0612/typnote/internal/progress"
	"github.com/Ning0612/typnote/internal/settings"
	"github.com/Ning0612/typnote/internal/state"
	"github.com/Ning0612/typnote/internal/tree"
	"github.com/Ning0612/typnote/internal/workspace"
)

// WorkspaceService wires storage, settings and the open session together.
// Every mutation holds the workspace's file lock so two typnote processes
// never modify the same root at once.
type WorkspaceService struct {
	config   *config.Config
	fs       *local.Adapter
	stateMgr *state.Manager
	settings *settings.Service
	session  *workspace.Session
	mutator  *mutator.Mutator

	mu    sync.Mutex
	locks map[string]*lock.FileLock

	// FileLock is not safe for concurrent use; mutations go through one at a time
	opMu sync.Mutex
}

// NewWorkspaceService creates a service over the host filesystem
func NewWorkspaceService(cfg *config.Config, notifier workspace.Notifier) (*WorkspaceService, error) {
	return NewWorkspaceServiceWithFs(cfg, afero.NewOsFs(), notifier)
}

// NewWorkspaceServiceWithFs creates a service whose workspaces live on fsys.
// State and locks always live on the host filesystem under cfg.DataDir.
func NewWorkspaceServiceWithFs(cfg *config.Config, fsys afero.Fs, notifier workspace.Notifier) (*WorkspaceService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	stateMgr, err := state.NewManager(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create state manager: %w", err)
	}

	fs := local.New(fsys)
	mut := mutator.New(fs, cfg.MutatorOptions())
	session := workspace.NewSession(tree.NewLoader(fs, cfg.LoaderOptions()), mut, notifier)
	session.SetRecorder(stateMgr)

	svc := &WorkspaceService{
		config:   cfg,
		fs:       fs,
		stateMgr: stateMgr,
		settings: settings.NewService(stateMgr),
		session:  session,
		mutator:  mut,
		locks:    make(map[string]*lock.FileLock),
	}

	if err := svc.seedSpaces(); err != nil {
		stateMgr.Close()
		return nil, err
	}
	return svc, nil
}

// seedSpaces registers the configured spaces when none are stored yet
func (s *WorkspaceService) seedSpaces() error {
	if len(s.config.Spaces) == 0 {
		return nil
	}
	existing, err := s.settings.Spaces()
	if err != nil {
		return fmt.Errorf("failed to read spaces: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	if err := s.settings.SetSpaces(s.config.Spaces); err != nil {
		return fmt.Errorf("failed to seed spaces: %w", err)
	}
	logger.Get().Info("registered spaces from config", "count", len(s.config.Spaces))
	return nil
}

// Config returns the configuration the service was built with
func (s *WorkspaceService) Config() *config.Config {
	return s.config
}

// Settings returns the settings service
func (s *WorkspaceService) Settings() *settings.Service {
	return s.settings
}

// Session returns the open session
func (s *WorkspaceService) Session() *workspace.Session {
	return s.session
}

// SetCopyReporter receives per-file progress of Duplicate
func (s *WorkspaceService) SetCopyReporter(r progress.Reporter) {
	s.mutator.SetReporter(r)
}

// Open loads the named space, or the last active one when name is empty,
// and remembers it as active. When the space is found but cannot be loaded
// it is returned with the error, which the session has already notified.
func (s *WorkspaceService) Open(ctx context.Context, name string) (domain.Space, error) {
	var (
		space domain.Space
		idx   int
		err   error
	)

	if name == "" {
		space, idx, err = s.settings.ActiveSpace()
		if err != nil {
			return domain.Space{}, err
		}
	} else {
		idx, err = s.settings.SpaceIndex(name)
		if err != nil {
			return domain.Space{}, err
		}
		spaces, err := s.settings.Spaces()
		if err != nil {
			return domain.Space{}, err
		}
		space = spaces[idx]
	}

	if err := s.settings.SetLastActive(idx); err != nil {
		return domain.Space{}, err
	}
	if err := s.session.Switch(ctx, space); err != nil {
		return space, err
	}
	return space, nil
}

// Tree returns the loaded tree of the open space
func (s *WorkspaceService) Tree() []domain.Entry {
	return s.session.Snapshot()
}

// Resolve turns a path relative to the open space's root into an absolute one
func (s *WorkspaceService) Resolve(path string) (string, error) {
	root := s.session.Space().RootPath
	if root == "" {
		return "", domain.ErrNoActiveSpace
	}
	if path == "" {
		return root, nil
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Join(root, path), nil
}

// CreateFile creates a generated file under dir ("" for the root)
func (s *WorkspaceService) CreateFile(ctx context.Context, dir string) (string, error) {
	var created string
	err := s.withLock(mutator.OpCreateFile, func() (err error) {
		created, err = s.session.CreateFile(ctx, dir)
		return err
	})
	return created, err
}

// CreateFolder creates a generated folder under dir ("" for the root)
func (s *WorkspaceService) CreateFolder(ctx context.Context, dir string) (string, error) {
	var created string
	err := s.withLock(mutator.OpCreateFolder, func() (err error) {
		created, err = s.session.CreateFolder(ctx, dir)
		return err
	})
	return created, err
}

// Rename renames the entry at path
func (s *WorkspaceService) Rename(ctx context.Context, path, newName string) (string, error) {
	var dest string
	err := s.withLock(mutator.OpRename, func() (err error) {
		dest, err = s.session.Rename(ctx, path, newName)
		return err
	})
	return dest, err
}

// Delete removes the entry at path
func (s *WorkspaceService) Delete(ctx context.Context, path string) error {
	return s.withLock(mutator.OpDelete, func() error {
		return s.session.Delete(ctx, path)
	})
}

// Duplicate copies the entry at path
func (s *WorkspaceService) Duplicate(ctx context.Context, path string) (string, error) {
	var dest string
	err := s.withLock(mutator.OpDuplicate, func() (err error) {
		dest, err = s.session.Duplicate(ctx, path)
		return err
	})
	return dest, err
}

// withLock runs fn while holding the open space's file lock
func (s *WorkspaceService) withLock(op string, fn func() error) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	root := s.session.Space().RootPath
	if root == "" {
		return domain.ErrNoActiveSpace
	}

	fl, err := s.fileLock(root)
	if err != nil {
		return err
	}
	if err := fl.Acquire(op); err != nil {
		return err
	}
	defer func() {
		if err := fl.Release(); err != nil {
			logger.Get().Warn("failed to release workspace lock", "root", root, "error", err)
		}
	}()

	return fn()
}

func (s *WorkspaceService) fileLock(root string) (*lock.FileLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fl, ok := s.locks[root]; ok {
		return fl, nil
	}
	fl, err := lock.NewFileLock(s.config.DataDir, root)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace lock: %w", err)
	}
	s.locks[root] = fl
	return fl, nil
}

// LockHolder reports who is modifying the open space, nil when nobody is
func (s *WorkspaceService) LockHolder() (*lock.LockInfo, error) {
	root := s.session.Space().RootPath
	if root == "" {
		return nil, domain.ErrNoActiveSpace
	}
	fl, err := s.fileLock(root)
	if err != nil {
		return nil, err
	}
	if !fl.IsLocked() {
		return nil, nil
	}
	return fl.GetHolder()
}

// ForceUnlock removes the open space's lock regardless of its holder
func (s *WorkspaceService) ForceUnlock() error {
	root := s.session.Space().RootPath
	if root == "" {
		return domain.ErrNoActiveSpace
	}
	fl, err := s.fileLock(root)
	if err != nil {
		return err
	}
	return fl.ForceRelease()
}

// History returns the most recent operations on the open space
func (s *WorkspaceService) History(limit int) ([]state.OperationRecord, error) {
	root := s.session.Space().RootPath
	if root == "" {
		return s.stateMgr.GetAllHistory(limit)
	}
	return s.stateMgr.GetHistory(root, limit)
}

// Close releases held locks and the database
func (s *WorkspaceService) Close() error {
	s.mu.Lock()
	var lastErr error
	for _, fl := range s.locks {
		if err := fl.Release(); err != nil {
			lastErr = err
		}
	}
	s.locks = make(map[string]*lock.FileLock)
	s.mu.Unlock()

	if err := s.stateMgr.Close(); err != nil {
		lastErr = err
	}
	return lastErr
}
