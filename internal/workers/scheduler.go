package workers

import (
	"context"
	"sync"
	"time"

	"finwiz/pkg/errors"
	"finwiz/pkg/logger"
)

// shutdownWait bounds how long Stop waits for in-flight iterations.
const shutdownWait = 30 * time.Second

// Scheduler runs registered workers on their intervals.
type Scheduler struct {
	workers []Worker
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	log     *logger.Logger
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{log: logger.Get().With("component", "worker_scheduler")}
}

// Register adds a worker. Registration after Start is ignored.
func (s *Scheduler) Register(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.log.Warnf("Cannot register worker %s after start", w.Name())
		return
	}
	s.workers = append(s.workers, w)
	s.log.Infof("Worker registered: %s (every %v)", w.Name(), w.Interval())
}

// Start launches every enabled worker in its own loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.Wrapf(errors.ErrInternal, "scheduler already started")
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, worker := range s.workers {
		if !worker.Enabled() {
			s.log.Infof("Skipping disabled worker %s", worker.Name())
			continue
		}

		s.wg.Add(1)
		go s.runLoop(ctx, worker)
	}
	return nil
}

// Stop signals all workers and waits for in-flight iterations.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrInternal, "scheduler not started")
	}
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownWait):
		return errors.Wrapf(errors.ErrInternal, "worker shutdown timed out after %v", shutdownWait)
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) runLoop(ctx context.Context, worker Worker) {
	defer s.wg.Done()

	ticker := time.NewTicker(worker.Interval())
	defer ticker.Stop()

	// First iteration runs at startup, not one interval later.
	s.runOnce(ctx, worker)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, worker)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, worker Worker) {
	if err := worker.Run(ctx); err != nil {
		s.log.Errorf("Worker %s iteration failed: %v", worker.Name(), err)
	}
}
