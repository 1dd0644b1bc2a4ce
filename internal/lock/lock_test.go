package lock

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Ning0612/typnote/internal/testutil"
)

func newTestLock(t *testing.T, dataDir, root string) *FileLock {
	t.Helper()
	l, err := NewFileLock(dataDir, root)
	if err != nil {
		t.Fatalf("NewFileLock failed: %v", err)
	}
	return l
}

// plantLock writes a lock file as if another holder had created it
func plantLock(t *testing.T, l *FileLock, info LockInfo) {
	t.Helper()
	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("marshal lock info: %v", err)
	}
	if err := os.WriteFile(l.lockPath, data, 0644); err != nil {
		t.Fatalf("write lock file: %v", err)
	}
}

func TestNewFileLock(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	l := newTestLock(t, dir, "/home/me/notes/")

	if filepath.Dir(l.Path()) != filepath.Join(dir, LockDirName) {
		t.Errorf("lock file %s not under %s", l.Path(), LockDirName)
	}
	if l.staleTimeout != DefaultStaleTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultStaleTimeout, l.staleTimeout)
	}

	// same root, same file
	again := newTestLock(t, dir, "/home/me/notes")
	if again.Path() != l.Path() {
		t.Errorf("equivalent roots map to different files: %s vs %s", again.Path(), l.Path())
	}
	other := newTestLock(t, dir, "/home/me/other")
	if other.Path() == l.Path() {
		t.Error("different roots share a lock file")
	}

	if _, err := NewFileLock(dir, ""); err == nil {
		t.Error("expected error for empty root")
	}
}

func TestAcquireRelease(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	l := newTestLock(t, dir, "/ws")

	if err := l.Acquire("rename"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if !l.IsLocked() {
		t.Error("lock should be held")
	}

	holder, err := l.GetHolder()
	if err != nil {
		t.Fatalf("GetHolder failed: %v", err)
	}
	if holder.Root != "/ws" || holder.Op != "rename" || holder.PID != os.Getpid() {
		t.Errorf("unexpected holder: %+v", holder)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(l.Path()); !os.IsNotExist(err) {
		t.Error("lock file still exists after release")
	}
	if l.IsLocked() {
		t.Error("lock should not be held after release")
	}

	// releasing twice is harmless
	if err := l.Release(); err != nil {
		t.Errorf("second Release failed: %v", err)
	}
}

func TestAcquireTwice_SameInstance(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	l := newTestLock(t, dir, "/ws")

	if err := l.Acquire("delete"); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if err := l.Acquire("duplicate"); err != nil {
		t.Fatalf("second Acquire by same instance should succeed: %v", err)
	}

	holder, err := l.GetHolder()
	if err != nil {
		t.Fatalf("GetHolder failed: %v", err)
	}
	if holder.Op != "duplicate" {
		t.Errorf("expected op 'duplicate', got '%s'", holder.Op)
	}

	// the op change must not make Release think the lock was stolen
	if err := l.Release(); err != nil {
		t.Fatalf("Release after re-acquire failed: %v", err)
	}
	if l.IsLocked() {
		t.Error("lock should be released")
	}
}

func TestAcquire_OtherInstanceBlocked(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	first := newTestLock(t, dir, "/ws")
	second := newTestLock(t, dir, "/ws")

	if err := first.Acquire("rename"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer first.Release()

	err := second.Acquire("delete")
	if !IsLockError(err) {
		t.Fatalf("expected LockError, got %v", err)
	}

	// a different workspace is unaffected
	other := newTestLock(t, dir, "/ws2")
	if err := other.Acquire("delete"); err != nil {
		t.Errorf("lock on another root failed: %v", err)
	}
	other.Release()
}

func TestConcurrentAcquire(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	const goroutines = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	acquired := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			l, err := NewFileLock(dir, "/ws")
			if err != nil {
				t.Errorf("NewFileLock failed: %v", err)
				return
			}
			if err := l.Acquire("create"); err == nil {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if acquired != 1 {
		t.Errorf("expected exactly one holder, got %d", acquired)
	}
}

func TestStaleDetection_ProcessDead(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	l := newTestLock(t, dir, "/ws")
	hostname, _ := os.Hostname()
	plantLock(t, l, LockInfo{
		PID:       999999,
		Hostname:  hostname,
		StartTime: time.Now(),
		Root:      "/ws",
	})

	if l.IsLocked() {
		t.Error("lock held by a dead process should be stale")
	}
	if err := l.Acquire("rename"); err != nil {
		t.Fatalf("Acquire over stale lock failed: %v", err)
	}
	l.Release()
}

func TestStaleDetection_LiveProcessNeverStale(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	l := newTestLock(t, dir, "/ws")
	l.SetStaleTimeout(time.Millisecond)
	hostname, _ := os.Hostname()
	plantLock(t, l, LockInfo{
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartTime: time.Now().Add(-24 * time.Hour),
		Root:      "/ws",
	})

	if !l.IsLocked() {
		t.Error("lock held by a live local process must not expire")
	}
	if err := l.Acquire("rename"); !IsLockError(err) {
		t.Errorf("expected LockError, got %v", err)
	}
}

func TestStaleDetection_DifferentHost(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	l := newTestLock(t, dir, "/ws")
	plantLock(t, l, LockInfo{
		PID:       1,
		Hostname:  "some-other-host",
		StartTime: time.Now().Add(-time.Hour),
		Root:      "/ws",
	})

	if l.IsLocked() {
		t.Error("old lock from another host should be stale")
	}

	l.SetStaleTimeout(2 * time.Hour)
	if !l.IsLocked() {
		t.Error("lock from another host within timeout should be honoured")
	}
}

func TestForceRelease(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	holder := newTestLock(t, dir, "/ws")
	if err := holder.Acquire("delete"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	rescuer := newTestLock(t, dir, "/ws")
	if err := rescuer.ForceRelease(); err != nil {
		t.Fatalf("ForceRelease failed: %v", err)
	}
	if rescuer.IsLocked() {
		t.Error("lock should be gone after ForceRelease")
	}

	// the original holder notices nothing is left to release
	if err := holder.Release(); err != nil {
		t.Errorf("Release after force release failed: %v", err)
	}
}

func TestRelease_Stolen(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	l := newTestLock(t, dir, "/ws")
	if err := l.Acquire("rename"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	plantLock(t, l, LockInfo{PID: 1, Hostname: "elsewhere", StartTime: time.Now(), Root: "/ws"})
	if err := l.Release(); err == nil {
		t.Error("expected error when the lock file belongs to someone else")
	}
	if _, err := os.Stat(l.Path()); err != nil {
		t.Error("a stolen lock file must be left in place")
	}
}

func TestLockError(t *testing.T) {
	err := &LockError{
		Holder: &LockInfo{PID: 42, Hostname: "box", StartTime: time.Unix(0, 0).UTC(), Op: "rename"},
		Reason: "busy",
	}
	msg := err.Error()
	want := "cannot acquire lock: busy (held by PID 42 on box since 1970-01-01T00:00:00Z, op: rename)"
	if msg != want {
		t.Errorf("Error() = %q, want %q", msg, want)
	}

	if (&LockError{Reason: "busy"}).Error() != "cannot acquire lock: busy" {
		t.Error("unexpected message without holder")
	}
	if IsLockError(os.ErrNotExist) {
		t.Error("IsLockError matched an unrelated error")
	}
}
