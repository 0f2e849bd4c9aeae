// Package job holds webhookd's background tasks (delivery log retention,
// ops alert dispatch) and the cron scheduler that drives them.
package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Runnable is a background task triggered by the scheduler.
type Runnable interface {
	Name() string
	Run(ctx context.Context) error
}

// defaultJobTimeout bounds a single run of the quick jobs (alert drains).
// The retention sweep registers a larger budget via RegisterWithTimeout
// since one pass may delete days of delivery log rows.
const defaultJobTimeout = 2 * time.Minute

// Scheduler wraps cron with per-job run timeouts, overlap suppression, and
// uniform logging. The inter-tick wait lives inside cron's own goroutine,
// so the context Stop returns resolves as soon as in-flight runs finish;
// shutdown never waits out a full interval.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	mu      sync.Mutex
	started bool
}

// NewScheduler builds a scheduler accepting standard cron specs plus
// descriptors like "@every 1h".
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{cron: cron.New(cron.WithParser(parser)), logger: logger}
}

// Register binds a cron spec to a runnable with the default run timeout.
func (s *Scheduler) Register(spec string, runnable Runnable) (cron.EntryID, error) {
	return s.RegisterWithTimeout(spec, runnable, defaultJobTimeout)
}

// RegisterWithTimeout binds a cron spec to a runnable whose single run is
// cancelled after timeout. A tick firing while the job's previous run is
// still in flight is skipped: a retention sweep that outlasts its interval
// must not stack a second sweep contending on the SQLite write lock.
func (s *Scheduler) RegisterWithTimeout(spec string, runnable Runnable, timeout time.Duration) (cron.EntryID, error) {
	if runnable == nil {
		return 0, fmt.Errorf("scheduler: runnable is required")
	}
	if spec == "" {
		return 0, fmt.Errorf("scheduler: spec is required")
	}
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}

	var running atomic.Bool
	entryID, err := s.cron.AddFunc(spec, func() {
		if !running.CompareAndSwap(false, true) {
			s.logger.Warn("job tick skipped, previous run still in flight", "job", runnable.Name())
			return
		}
		defer running.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()
		if err := runnable.Run(ctx); err != nil {
			s.logger.Error("job failed", "job", runnable.Name(), "error", err, "elapsed", time.Since(start))
			return
		}
		s.logger.Debug("job completed", "job", runnable.Name(), "elapsed", time.Since(start))
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("job registered", "job", runnable.Name(), "spec", spec, "timeout", timeout)
	return entryID, nil
}

// Start launches the scheduler loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
}

// Stop halts scheduling and returns a context that resolves once every
// in-flight job run has finished.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return context.Background()
	}
	s.started = false
	return s.cron.Stop()
}
