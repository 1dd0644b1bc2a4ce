package logger

import (
	"fmt"
	"os"
	"sync"
)

// LevelEnv overrides the configured level when set
const LevelEnv = "TYPNOTE_LOG_LEVEL"

var (
	defaultLogger Logger
	mu            sync.RWMutex
	initialized   bool
)

// Init installs the process-wide logger
func Init(config Config) error {
	mu.Lock()
	defer mu.Unlock()

	if initialized {
		return fmt.Errorf("logger already initialized; call Shutdown() before re-initializing")
	}

	if lvl := os.Getenv(LevelEnv); lvl != "" {
		config.Level = ParseLevel(lvl)
	}

	logger, err := NewSlogLogger(config)
	if err != nil {
		return fmt.Errorf("failed to create slog logger: %w", err)
	}

	defaultLogger = logger
	initialized = true
	return nil
}

// Get returns the process-wide logger, or a NullLogger before Init
func Get() Logger {
	mu.RLock()
	defer mu.RUnlock()

	if !initialized {
		return &NullLogger{}
	}

	return defaultLogger
}

// With returns a child of the process-wide logger
func With(args ...any) Logger {
	return Get().With(args...)
}

// Sync flushes the process-wide logger
func Sync() error {
	return Get().Sync()
}

// Shutdown closes the process-wide logger; safe to call more than once
func Shutdown() error {
	mu.Lock()
	if !initialized {
		mu.Unlock()
		return nil
	}

	logger := defaultLogger
	initialized = false
	mu.Unlock() // release before logger.Shutdown() to avoid deadlock

	return logger.Shutdown()
}

// NullLogger discards everything
type NullLogger struct{}

func (n *NullLogger) Debug(msg string, args ...any) {}
func (n *NullLogger) Info(msg string, args ...any)  {}
func (n *NullLogger) Warn(msg string, args ...any)  {}
func (n *NullLogger) Error(msg string, args ...any) {}
func (n *NullLogger) With(args ...any) Logger       { return n }
func (n *NullLogger) Sync() error                   { return nil }
func (n *NullLogger) Shutdown() error               { return nil }
