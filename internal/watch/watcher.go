package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Ning0612/typnote/internal/logger"
	"github.com/Ning0612/typnote/internal/tree"
)

// DefaultDebounce is how long the watcher waits for a burst to settle
const DefaultDebounce = 300 * time.Millisecond

// scratchSuffixes mark temporary files written by the filesystem adapter
var scratchSuffixes = []string{".typnote.tmp", ".typnote-tmp"}

// Options configures a Watcher
type Options struct {
	Debounce     time.Duration
	HiddenPrefix string
}

// ChangeFunc receives the distinct paths touched during one settled burst
type ChangeFunc func(paths []string)

// Watcher reports changes anywhere under a workspace root.
// Hidden directories are not watched and hidden names are ignored.
type Watcher struct {
	root     string
	opts     Options
	onChange ChangeFunc

	fsw     *fsnotify.Watcher
	wg      sync.WaitGroup
	mu      sync.Mutex
	watched map[string]bool
	started bool
}

// New creates a watcher for root. Nothing is watched until Start.
func New(root string, opts Options, onChange ChangeFunc) (*Watcher, error) {
	if root == "" {
		return nil, fmt.Errorf("watch root cannot be empty")
	}
	if onChange == nil {
		return nil, fmt.Errorf("change callback cannot be nil")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		root:     filepath.Clean(root),
		opts:     opts,
		onChange: onChange,
		fsw:      fsw,
		watched:  make(map[string]bool),
	}, nil
}

// Start watches the tree under root and dispatches events until ctx is
// done or Close is called
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return fmt.Errorf("watcher already started")
	}
	w.started = true
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.loop(ctx)

	logger.Get().Info("watching workspace", "root", w.root, "directories", w.Len())
	return nil
}

// Len returns the number of watched directories
func (w *Watcher) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watched)
}

// Close stops the watcher and waits for the event loop to exit
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

// addRecursive watches dir and every non-hidden directory beneath it.
// Failures below the root are logged and skipped.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("failed to walk %s: %w", dir, err)
			}
			logger.Get().Warn("cannot watch directory", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path) {
			return filepath.SkipDir
		}

		if err := w.fsw.Add(path); err != nil {
			if path == dir {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			logger.Get().Warn("cannot watch directory", "path", path, "error", err)
			return nil
		}

		w.mu.Lock()
		w.watched[path] = true
		w.mu.Unlock()
		return nil
	})
}

// ignored reports hidden names and adapter scratch files
func (w *Watcher) ignored(path string) bool {
	name := filepath.Base(path)
	if tree.IsHidden(name, w.opts.HiddenPrefix) {
		return true
	}
	for _, suffix := range scratchSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending = make(map[string]bool)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	// arm restarts the quiet period
	arm := func() {
		if timer == nil {
			timer = time.NewTimer(w.opts.Debounce)
		} else {
			timer.Reset(w.opts.Debounce)
		}
		timerC = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.ignored(ev.Name) {
				continue
			}
			w.track(ev)
			pending[ev.Name] = true
			arm()

		case <-timerC:
			timerC = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]bool)

			logger.Get().Debug("workspace changed", "root", w.root, "paths", len(paths))
			w.onChange(paths)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// events were lost; a full reload covers them
				pending[w.root] = true
				arm()
			}
			logger.Get().Warn("watcher error", "root", w.root, "error", err)
		}
	}
}

// track starts watching new directories and forgets removed ones
func (w *Watcher) track(ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Create):
		info, err := os.Stat(ev.Name)
		if err == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				logger.Get().Warn("cannot watch new directory", "path", ev.Name, "error", err)
			}
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.mu.Lock()
		for p := range w.watched {
			if tree.Within(ev.Name, p) {
				delete(w.watched, p)
			}
		}
		w.mu.Unlock()
	}
}
