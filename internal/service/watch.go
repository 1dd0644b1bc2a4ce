package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/Ning0612/typnote/internal/daemon"
	"github.com/Ning0612/typnote/internal/domain"
	"github.com/Ning0612/typnote/internal/logger"
	"github.com/Ning0612/typnote/internal/scheduler"
	"github.com/Ning0612/typnote/internal/tree"
	"github.com/Ning0612/typnote/internal/watch"
)

// ChangeHandler receives what changed in the tree after a reload
type ChangeHandler func(changes tree.Changes)

// WatchPIDFile returns the PID file of the open space's watcher
func (s *WorkspaceService) WatchPIDFile() (*daemon.PIDFile, error) {
	root := s.session.Space().RootPath
	if root == "" {
		return nil, domain.ErrNoActiveSpace
	}
	path, err := daemon.WatchPIDPath(s.config.DataDir, root)
	if err != nil {
		return nil, err
	}
	return daemon.NewPIDFile(path), nil
}

// Watch keeps the open space's tree current until ctx is done. Filesystem
// events trigger a reload; when watch.poll_interval is set a periodic
// rescan runs as well. handler is called only when the tree changed.
func (s *WorkspaceService) Watch(ctx context.Context, handler ChangeHandler) error {
	space := s.session.Space()
	if space.RootPath == "" {
		return domain.ErrNoActiveSpace
	}

	pidFile, err := s.WatchPIDFile()
	if err != nil {
		return err
	}
	if err := pidFile.Write(); err != nil {
		return fmt.Errorf("cannot watch %s: %w", space.Name, err)
	}
	defer pidFile.Remove()

	var mu sync.Mutex
	reload := func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()

		prev := s.session.Snapshot()
		if err := s.session.Refresh(ctx); err != nil {
			return err
		}
		changes := tree.Diff(prev, s.session.Snapshot())
		if !changes.Empty() && handler != nil {
			handler(changes)
		}
		return nil
	}

	w, err := watch.New(space.RootPath, watch.Options{
		Debounce:     s.config.Watch.Debounce,
		HiddenPrefix: s.config.Tree.HiddenPrefix,
	}, func(paths []string) {
		logger.Get().Debug("workspace changed", "space", space.Name, "paths", len(paths))
		if err := reload(ctx); err != nil {
			logger.Get().Warn("reload after change failed", "space", space.Name, "error", err)
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to watch %s: %w", space.RootPath, err)
	}

	if interval := s.config.Watch.PollInterval; interval > 0 {
		sched, err := scheduler.NewIntervalScheduler(interval, scheduler.RunnerFunc(reload))
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	<-ctx.Done()
	return nil
}
