package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
)

// TempDir creates a temporary workspace root for testing
// It returns the directory path and a cleanup function
func TempDir(t *testing.T) (string, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "typnote-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	cleanup := func() {
		os.Chmod(dir, 0755)
		os.RemoveAll(dir)
	}

	return dir, cleanup
}

// CreateTestFile creates a test file with the given content
func CreateTestFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create parent dir: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	return path
}

// Symlink creates link pointing at target, skipping the test on platforms
// that refuse to create links (e.g. Windows without developer mode)
func Symlink(t *testing.T, target, link string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(link), 0755); err != nil {
		t.Fatalf("failed to create parent dir: %v", err)
	}
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
}

// BuildTree lays out a workspace on fsys under root. Keys ending in "/"
// are directories, everything else is a file whose content is the value.
func BuildTree(t *testing.T, fsys afero.Fs, root string, layout map[string]string) {
	t.Helper()

	if err := fsys.MkdirAll(root, 0755); err != nil {
		t.Fatalf("failed to create root %s: %v", root, err)
	}

	for rel, content := range layout {
		path := filepath.Join(root, filepath.FromSlash(strings.TrimSuffix(rel, "/")))
		if strings.HasSuffix(rel, "/") {
			if err := fsys.MkdirAll(path, 0755); err != nil {
				t.Fatalf("failed to create dir %s: %v", path, err)
			}
			continue
		}
		if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", path, err)
		}
		if err := afero.WriteFile(fsys, path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
}

// FailingFs wraps an afero.Fs and fails Open on selected paths,
// simulating directories that cannot be listed.
type FailingFs struct {
	afero.Fs

	mu    sync.RWMutex
	fails map[string]error
}

// NewFailingFs wraps base
func NewFailingFs(base afero.Fs) *FailingFs {
	return &FailingFs{Fs: base, fails: make(map[string]error)}
}

// FailOpen makes every Open/OpenFile of path return err
func (f *FailingFs) FailOpen(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails[filepath.Clean(path)] = err
}

func (f *FailingFs) failure(name string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.fails[filepath.Clean(name)]
}

// Open implements afero.Fs
func (f *FailingFs) Open(name string) (afero.File, error) {
	if err := f.failure(name); err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	return f.Fs.Open(name)
}

// OpenFile implements afero.Fs
func (f *FailingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if err := f.failure(name); err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if condition() {
			return true
		}

		if time.Now().After(deadline) {
			return false
		}

		<-ticker.C
	}
}

// AssertEventually asserts that a condition becomes true within timeout
func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msgAndArgs ...interface{}) {
	t.Helper()

	if !WaitForCondition(timeout, condition) {
		if len(msgAndArgs) > 0 {
			t.Fatalf("condition not met within %v: %v", timeout, msgAndArgs[0])
		} else {
			t.Fatalf("condition not met within %v", timeout)
		}
	}
}
