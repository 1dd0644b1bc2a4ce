package progress

import (
	"fmt"
	"sync"
	"time"
)

// Reporter receives per-file progress while a duplicate copies content
type Reporter interface {
	// Start begins tracking one file copy
	Start(path string, totalBytes int64)
	// Complete marks the current file as copied
	Complete()
	// Error reports a failure on the current file
	Error(err error)
}

// Callback is a function that receives progress updates
type Callback func(update Update)

// Update represents a progress update
type Update struct {
	Type           UpdateType
	CurrentFile    string
	CurrentTotal   int64
	FilesCompleted int
	BytesCompleted int64
	Elapsed        time.Duration
	Error          error
}

// UpdateType indicates the type of progress update
type UpdateType int

const (
	UpdateStart UpdateType = iota
	UpdateComplete
	UpdateError
)

// CallbackReporter implements Reporter with a callback function
type CallbackReporter struct {
	callback       Callback
	mu             sync.Mutex
	currentFile    string
	currentTotal   int64
	filesCompleted int
	bytesCompleted int64
	startTime      time.Time
}

// NewCallbackReporter creates a new CallbackReporter
func NewCallbackReporter(callback Callback) *CallbackReporter {
	return &CallbackReporter{
		callback: callback,
	}
}

// Start begins tracking one file copy
func (r *CallbackReporter) Start(path string, totalBytes int64) {
	r.mu.Lock()
	r.currentFile = path
	r.currentTotal = totalBytes
	r.startTime = time.Now()

	update := Update{
		Type:           UpdateStart,
		CurrentFile:    path,
		CurrentTotal:   totalBytes,
		FilesCompleted: r.filesCompleted,
		BytesCompleted: r.bytesCompleted,
	}
	r.mu.Unlock()

	r.emit(update)
}

// Complete marks the current file as copied
func (r *CallbackReporter) Complete() {
	r.mu.Lock()
	r.filesCompleted++
	r.bytesCompleted += r.currentTotal

	update := Update{
		Type:           UpdateComplete,
		CurrentFile:    r.currentFile,
		CurrentTotal:   r.currentTotal,
		FilesCompleted: r.filesCompleted,
		BytesCompleted: r.bytesCompleted,
		Elapsed:        time.Since(r.startTime),
	}
	r.mu.Unlock()

	r.emit(update)
}

// Error reports a failure on the current file
func (r *CallbackReporter) Error(err error) {
	r.mu.Lock()
	update := Update{
		Type:           UpdateError,
		CurrentFile:    r.currentFile,
		CurrentTotal:   r.currentTotal,
		FilesCompleted: r.filesCompleted,
		BytesCompleted: r.bytesCompleted,
		Elapsed:        time.Since(r.startTime),
		Error:          err,
	}
	r.mu.Unlock()

	r.emit(update)
}

// Totals returns the files and bytes copied so far
func (r *CallbackReporter) Totals() (files int, bytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filesCompleted, r.bytesCompleted
}

// emit calls the callback outside the lock so it may call back into r
func (r *CallbackReporter) emit(update Update) {
	if r.callback != nil {
		r.callback(update)
	}
}

// NullReporter is a no-op reporter
type NullReporter struct{}

func (NullReporter) Start(path string, totalBytes int64) {}
func (NullReporter) Complete()                           {}
func (NullReporter) Error(err error)                     {}

// FormatBytes formats bytes into human-readable string
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
