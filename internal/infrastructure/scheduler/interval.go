package scheduler

import (
	"context"
	"sync"
	"time"

	"StoryScanner/internal/ports"
)

// DefaultInterval is the refresh period used when none is configured.
const DefaultInterval = 24 * time.Hour

// IntervalScheduler runs a job immediately and then once per interval.
type IntervalScheduler struct {
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a scheduler ticking every interval.
func NewIntervalScheduler(interval time.Duration) *IntervalScheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &IntervalScheduler{interval: interval}
}

// Interval reports the tick period.
func (s *IntervalScheduler) Interval() time.Duration {
	return s.interval
}

// Start launches the loop. Calling it while running is a no-op. Runs never
// overlap: a tick that arrives during a run is dropped by the ticker.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		job(time.Now())
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the loop and waits for an in-flight run, bounded by ctx.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
