package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RetryPolicy bounds how a failed run is retried. Backoff receives the
// 1-based attempt number and returns how long to wait before retrying it.
type RetryPolicy struct {
	MaxRetries int
	Backoff    func(attempt int) time.Duration
}

// ExponentialBackoff doubles the wait on each attempt starting from base.
func ExponentialBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base << (attempt - 1)
	}
}

// Scheduler runs a job on a fixed cadence, retrying each run under the
// configured policy. A run whose retries exhaust is logged and considered
// missed; the next cadence fires normally.
type Scheduler struct {
	name     string
	interval time.Duration
	policy   RetryPolicy
	job      func(ctx context.Context) error
	logger   *slog.Logger

	mu     sync.Mutex
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
}

// New creates a scheduler for the given job.
func New(name string, interval time.Duration, policy RetryPolicy, job func(ctx context.Context) error, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		name:     name,
		interval: interval,
		policy:   policy,
		job:      job,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start launches the cadence loop. The first run fires immediately.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run()

	s.logger.Info("scheduler started", "job", s.name, "interval", s.interval)
}

// Stop halts the cadence and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker == nil {
		return
	}

	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil

	s.logger.Info("scheduler stopped", "job", s.name)
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	s.RunOnce(context.Background())

	for {
		select {
		case <-s.ticker.C:
			s.RunOnce(context.Background())
		case <-s.stop:
			return
		}
	}
}

// RunOnce executes one scheduled run under the retry policy. It returns the
// last error when every attempt failed.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= s.policy.MaxRetries+1; attempt++ {
		if err = s.job(ctx); err == nil {
			return nil
		}

		s.logger.Warn("scheduled run failed", "job", s.name, "attempt", attempt, "error", err)

		if attempt > s.policy.MaxRetries {
			break
		}
		wait := time.Duration(0)
		if s.policy.Backoff != nil {
			wait = s.policy.Backoff(attempt)
		}
		select {
		case <-time.After(wait):
		case <-s.stop:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.logger.Error("scheduled run missed, retries exhausted", "job", s.name, "error", err)
	return err
}
