package daemon

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WatchDirName is the subdirectory of the data directory holding watcher PID files
const WatchDirName = "watch"

// ErrNotRunning means no live process owns the PID file
var ErrNotRunning = errors.New("not running")

// PIDFile records the process watching one workspace, so a second
// `typnote watch` on the same root refuses to start and `watch stop`
// can find the first
type PIDFile struct {
	path string
}

// NewPIDFile creates a PID file manager for path
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// WatchPIDPath returns the PID file location for root, creating its directory
func WatchPIDPath(dataDir, root string) (string, error) {
	if dataDir == "" || root == "" {
		return "", fmt.Errorf("data directory and root are required")
	}

	dir := filepath.Join(dataDir, WatchDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create PID directory: %w", err)
	}

	sum := sha256.Sum256([]byte(filepath.Clean(root)))
	return filepath.Join(dir, hex.EncodeToString(sum[:8])+".pid"), nil
}

// Path returns the PID file location
func (p *PIDFile) Path() string {
	return p.path
}

// Write records the current process. A file left by a dead process is replaced.
func (p *PIDFile) Write() error {
	if running, err := p.IsRunning(); err == nil && running {
		pid, _ := p.Read()
		return fmt.Errorf("already watched by PID %d", pid)
	}
	if err := p.Remove(); err != nil {
		return err
	}

	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("another watcher started concurrently: %s", p.path)
		}
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// Read returns the PID stored in the file
func (p *PIDFile) Read() (int, error) {
	content, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotRunning
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pidStr := strings.TrimSpace(string(content))
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID in file: %q", pidStr)
	}
	return pid, nil
}

// Remove deletes the PID file; a missing file is not an error
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// IsRunning reports whether the recorded process is alive
func (p *PIDFile) IsRunning() (bool, error) {
	pid, err := p.Read()
	if err != nil {
		return false, err
	}
	return isProcessRunning(pid), nil
}

// Stop asks the recorded process to exit
func (p *PIDFile) Stop() error {
	pid, err := p.Read()
	if err != nil {
		return err
	}
	if !isProcessRunning(pid) {
		p.Remove()
		return ErrNotRunning
	}
	if pid == os.Getpid() {
		return fmt.Errorf("refusing to stop the current process")
	}
	return stopProcess(pid)
}
