package trigger

import (
	"context"
	"sync"
	"time"

	"github.com/timmy/reelvault/internal/logger"
)

// Scheduler fires a fresh invocation on a fixed interval so queued jobs are
// eventually drained even when every chain has stopped. An optional sweep
// runs before each tick.
type Scheduler struct {
	trigger  Trigger
	interval time.Duration
	sweep    func(ctx context.Context) error

	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a scheduler firing t every interval.
func NewScheduler(t Trigger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		trigger:  t,
		interval: interval,
	}
}

// WithSweep registers fn to run before each fired invocation.
func (s *Scheduler) WithSweep(fn func(ctx context.Context) error) *Scheduler {
	s.sweep = fn
	return s
}

// Start begins ticking. Calling Start on a running scheduler does nothing; a
// stopped scheduler can be started again.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	s.wg.Add(1)
	s.mu.Unlock()

	go s.loop(ctx, stopCh)
	logger.CtxInfo(ctx, "Worker scheduler started, interval %s", s.interval)
}

// Stop halts the scheduler and waits for the current tick.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if s.sweep != nil {
		if err := s.sweep(ctx); err != nil {
			logger.CtxWarn(ctx, "Scheduled sweep failed: %v", err)
		}
	}
	if err := s.trigger.Fire(ctx, Invocation{Reason: "schedule"}); err != nil {
		logger.CtxWarn(ctx, "Scheduled worker trigger failed: %v", err)
	}
}
