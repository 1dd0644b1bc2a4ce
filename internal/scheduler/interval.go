package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ning0612/typnote/internal/logger"
)

// Runner is the periodic job; workspace.Session satisfies it with Refresh
type Runner interface {
	Refresh(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Refresh(ctx context.Context) error { return f(ctx) }

// Status is a snapshot of scheduler statistics
type Status struct {
	Running        bool
	LastRunTime    time.Time
	NextRunTime    time.Time
	TotalRuns      int
	SuccessfulRuns int
	FailedRuns     int
	LastError      string
}

// IntervalScheduler rescans a workspace on a fixed period, catching changes
// that filesystem notifications miss (network drives, overflowed queues).
type IntervalScheduler struct {
	interval time.Duration
	runner   Runner

	mu          sync.RWMutex
	running     bool
	stopped     bool
	stopOnce    sync.Once
	closeOnce   sync.Once
	stopChan    chan struct{}
	stoppedChan chan struct{}
	status      Status
}

// NewIntervalScheduler creates a scheduler calling runner every interval
func NewIntervalScheduler(interval time.Duration, runner Runner) (*IntervalScheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %v", interval)
	}
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}

	return &IntervalScheduler{
		interval:    interval,
		runner:      runner,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}, nil
}

// Start launches the loop; a stopped scheduler cannot be restarted
func (s *IntervalScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	if s.stopped {
		return fmt.Errorf("scheduler cannot be restarted after stop")
	}

	s.running = true
	s.status.NextRunTime = time.Now().Add(s.interval)

	go s.run(ctx)
	return nil
}

func (s *IntervalScheduler) run(ctx context.Context) {
	defer s.closeOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.running = false
		s.mu.Unlock()
		close(s.stoppedChan)
	})

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *IntervalScheduler) tick(ctx context.Context) {
	s.mu.Lock()
	s.status.LastRunTime = time.Now()
	s.status.NextRunTime = s.status.LastRunTime.Add(s.interval)
	s.status.TotalRuns++
	s.mu.Unlock()

	err := s.runner.Refresh(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status.FailedRuns++
		s.status.LastError = err.Error()
		logger.Get().Warn("periodic rescan failed", "error", err)
		return
	}
	s.status.SuccessfulRuns++
	s.status.LastError = ""
}

// Stop ends the loop and waits for it to exit
func (s *IntervalScheduler) Stop() error {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	if !running {
		return fmt.Errorf("scheduler is not running")
	}

	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.stoppedChan
	return nil
}

// Status returns the current statistics
func (s *IntervalScheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.status
	st.Running = s.running
	return st
}
