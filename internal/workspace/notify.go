package workspace

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Ning0612/typnote/internal/domain"
)

// Level grades a notification
type Level int

const (
	LevelSuccess Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "success"
}

// Notification reports the outcome of a user-visible operation
type Notification struct {
	Op      string
	Message string
	Err     error
	Level   Level
}

// Notifier receives notifications
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Collector keeps every notification, for tests and batch callers
type Collector struct {
	mu    sync.Mutex
	items []Notification
}

func (c *Collector) Notify(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, n)
}

// All returns the notifications received so far
func (c *Collector) All() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.items...)
}

// Last returns the newest notification
func (c *Collector) Last() (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return Notification{}, false
	}
	return c.items[len(c.items)-1], true
}

func failure(op string, err error) Notification {
	return Notification{
		Op:      op,
		Message: fmt.Sprintf("Failed to %s: %s", op, describe(err)),
		Err:     err,
		Level:   LevelError,
	}
}

// describe drops the op/path prefix and phrases conflicts for people
func describe(err error) string {
	if errors.Is(err, domain.ErrNameConflict) {
		return "a file or folder with this name already exists"
	}
	var opErr *domain.OpError
	if errors.As(err, &opErr) {
		return opErr.Err.Error()
	}
	return err.Error()
}

func success(op, message string) Notification {
	return Notification{Op: op, Message: message, Level: LevelSuccess}
}
