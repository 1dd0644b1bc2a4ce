package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// LockDirName is the directory under the data dir holding lock files
	LockDirName = "locks"
	// DefaultStaleTimeout is how long a lock from another host is honoured
	DefaultStaleTimeout = 30 * time.Minute
)

// LockInfo identifies the process mutating a workspace
type LockInfo struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartTime time.Time `json:"start_time"`
	Root      string    `json:"root"`
	Op        string    `json:"op,omitempty"`
}

// FileLock is a cross-process lock on one workspace root.
// The lock file lives in the data directory, never inside the workspace,
// so it does not show up in the tree.
type FileLock struct {
	root         string
	lockPath     string
	staleTimeout time.Duration
	info         *LockInfo
}

// NewFileLock creates the lock for root, keeping its file under dataDir/locks
func NewFileLock(dataDir, root string) (*FileLock, error) {
	if dataDir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config dir: %w", err)
		}
		dataDir = filepath.Join(configDir, "typnote")
	}
	if root == "" {
		return nil, fmt.Errorf("workspace root cannot be empty")
	}

	lockDir := filepath.Join(dataDir, LockDirName)
	if err := os.MkdirAll(lockDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	root = filepath.Clean(root)
	return &FileLock{
		root:         root,
		lockPath:     filepath.Join(lockDir, lockFileName(root)),
		staleTimeout: DefaultStaleTimeout,
	}, nil
}

// lockFileName derives a stable file name from the workspace root
func lockFileName(root string) string {
	sum := sha256.Sum256([]byte(root))
	return hex.EncodeToString(sum[:8]) + ".lock"
}

// Path returns the lock file location
func (l *FileLock) Path() string {
	return l.lockPath
}

// SetStaleTimeout sets how long a lock from another host is honoured
func (l *FileLock) SetStaleTimeout(d time.Duration) {
	l.staleTimeout = d
}

// Acquire takes the lock for op. Acquiring again on the same instance
// only records the new op.
func (l *FileLock) Acquire(op string) error {
	existing, err := l.readLockInfo()

	if l.info != nil && err == nil && l.isHeldByThisInstance(existing) {
		existing.Op = op
		if err := l.writeLockInfo(existing); err != nil {
			return err
		}
		l.info.Op = op
		return nil
	}

	if err == nil {
		if !l.isStale(existing) {
			return &LockError{Holder: existing, Reason: "workspace is being modified by another process"}
		}
		if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale lock: %w", err)
		}
	}

	hostname, _ := os.Hostname()
	info := &LockInfo{
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartTime: time.Now(),
		Root:      l.root,
		Op:        op,
	}

	file, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if !os.IsExist(err) {
			return fmt.Errorf("failed to create lock file: %w", err)
		}
		// lost the race between the check above and the create
		holder, readErr := l.readLockInfo()
		if readErr != nil {
			return fmt.Errorf("lock acquisition race condition: %w", err)
		}
		return &LockError{Holder: holder, Reason: "lock acquired by another process during acquisition"}
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(info); err != nil {
		os.Remove(l.lockPath)
		return fmt.Errorf("failed to write lock info: %w", err)
	}

	l.info = info
	return nil
}

// Release drops the lock if this instance holds it
func (l *FileLock) Release() error {
	if l.info == nil {
		return nil
	}
	defer func() { l.info = nil }()

	existing, err := l.readLockInfo()
	if err != nil {
		return nil
	}
	if !l.isHeldByThisInstance(existing) {
		return fmt.Errorf("lock was stolen by another process")
	}

	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// IsLocked reports whether a live holder exists
func (l *FileLock) IsLocked() bool {
	info, err := l.readLockInfo()
	if err != nil {
		return false
	}
	return !l.isStale(info)
}

// GetHolder returns the live holder of the lock
func (l *FileLock) GetHolder() (*LockInfo, error) {
	info, err := l.readLockInfo()
	if err != nil {
		return nil, err
	}
	if l.isStale(info) {
		return nil, fmt.Errorf("lock is stale")
	}
	return info, nil
}

// ForceRelease removes the lock file regardless of holder.
// Only use it when the holder is known to have crashed.
func (l *FileLock) ForceRelease() error {
	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to force remove lock: %w", err)
	}
	l.info = nil
	return nil
}

func (l *FileLock) readLockInfo() (*LockInfo, error) {
	data, err := os.ReadFile(l.lockPath)
	if err != nil {
		return nil, err
	}

	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("invalid lock file format: %w", err)
	}
	return &info, nil
}

func (l *FileLock) writeLockInfo(info *LockInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.lockPath, data, 0644)
}

// isStale reports a dead holder on this host, or an expired holder elsewhere.
// A live local process keeps its lock however long it runs.
func (l *FileLock) isStale(info *LockInfo) bool {
	hostname, _ := os.Hostname()
	if info.Hostname == hostname {
		return !processExists(info.PID)
	}
	return time.Since(info.StartTime) > l.staleTimeout
}

func (l *FileLock) isHeldByThisInstance(info *LockInfo) bool {
	if l.info == nil {
		return false
	}
	hostname, _ := os.Hostname()
	return info.PID == os.Getpid() &&
		info.Hostname == hostname &&
		l.info.StartTime.Equal(info.StartTime)
}

// LockError reports a lock held by someone else
type LockError struct {
	Holder *LockInfo
	Reason string
}

func (e *LockError) Error() string {
	if e.Holder == nil {
		return fmt.Sprintf("cannot acquire lock: %s", e.Reason)
	}
	return fmt.Sprintf("cannot acquire lock: %s (held by PID %d on %s since %s, op: %s)",
		e.Reason,
		e.Holder.PID,
		e.Holder.Hostname,
		e.Holder.StartTime.Format(time.RFC3339),
		e.Holder.Op,
	)
}

// IsLockError checks if err is or wraps a LockError
func IsLockError(err error) bool {
	var le *LockError
	return errors.As(err, &le)
}
