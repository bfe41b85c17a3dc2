package monitoring

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Collector takes one sample. Implementations handle their own errors.
type Collector interface {
	Collect(ctx context.Context)
}

// Sampler runs a Collector on a fixed period in one background goroutine.
// The next wait starts after the previous Collect returns, so samples never
// overlap and the effective period is at least the interval.
type Sampler struct {
	interval  time.Duration
	collector Collector
	logger    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSampler creates a sampler; it does nothing until Start
func NewSampler(interval time.Duration, collector Collector, logger *zap.Logger) *Sampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sampler{
		interval:  interval,
		collector: collector,
		logger:    logger,
	}
}

// Start launches the sampling loop. Calling Start on a running sampler is a
// no-op. The loop ends when ctx is cancelled or Stop is called.
func (s *Sampler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, s.done)

	s.logger.Info("Metrics sampler started", zap.Duration("interval", s.interval))
}

// Stop cancels the loop and waits for it to exit. A Collect already in flight
// finishes first. Stop is idempotent.
func (s *Sampler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sampler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Metrics sampler stopped")
			return
		case <-timer.C:
		}

		// Cancellation may have raced the timer.
		if ctx.Err() != nil {
			s.logger.Info("Metrics sampler stopped")
			return
		}

		s.collector.Collect(context.WithoutCancel(ctx))
		timer.Reset(s.interval)
	}
}
