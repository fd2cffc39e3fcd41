package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Duke0404/readersync/internal/probe"
)

// syncRunner is the slice of the engine the scheduler drives.
type syncRunner interface {
	Sync(ctx context.Context, forcePush bool) (Result, error)
}

// SchedulerConfig tunes when the scheduler fires.
type SchedulerConfig struct {
	// Debounce is the quiet period after a library mutation before a
	// forced push fires. Rapid edits collapse into one upload.
	Debounce time.Duration

	// MinSyncInterval floors the gap between scheduler-initiated runs.
	MinSyncInterval time.Duration
}

// SyncScheduler decides WHEN the engine runs. It debounces mutation
// bursts into a single forced push, retries a held-back push when the
// backend comes back, and rate-limits everything it initiates.
type SyncScheduler struct {
	engine  syncRunner
	logger  *slog.Logger
	limiter *rate.Limiter

	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
	dirty bool

	ctx context.Context
}

// NewScheduler creates a scheduler over the given engine.
func NewScheduler(engine syncRunner, cfg SchedulerConfig, logger *slog.Logger) *SyncScheduler {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}
	if cfg.MinSyncInterval <= 0 {
		cfg.MinSyncInterval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncScheduler{
		engine:   engine,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Every(cfg.MinSyncInterval), 1),
		debounce: cfg.Debounce,
		ctx:      context.Background(),
	}
}

// Start binds the scheduler's runs to ctx. Runs launched after ctx is
// cancelled abort immediately.
func (s *SyncScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
}

// NotifyMutation records a local library change. After the debounce quiet
// period a forced push fires, so the backend converges without the user
// ever asking for a sync.
func (s *SyncScheduler) NotifyMutation() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dirty = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.trigger(true)
	})
}

// OnStatusChange reacts to backend connectivity transitions. Coming back
// online flushes any pending local changes, or runs a plain comparison
// sync when nothing is pending.
func (s *SyncScheduler) OnStatusChange(status probe.Status) {
	if status != probe.StatusAuthenticated {
		return
	}

	s.mu.Lock()
	dirty := s.dirty
	s.mu.Unlock()

	go s.trigger(dirty)
}

// RequestSync runs a sync on behalf of the user. Unlike scheduler-initiated
// runs it is not rate-limited; the engine's busy guard still applies.
func (s *SyncScheduler) RequestSync(ctx context.Context, forcePush bool) (Result, error) {
	result, err := s.engine.Sync(ctx, forcePush)
	s.settle(result, err)
	return result, err
}

// trigger runs the engine if the rate limiter allows it. Called from timer
// goroutines and status callbacks.
func (s *SyncScheduler) trigger(forcePush bool) {
	if !s.limiter.Allow() {
		s.logger.Debug("scheduled sync suppressed by rate limit")
		// The dirty flag stays set; the next trigger picks the push up.
		return
	}

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	result, err := s.engine.Sync(ctx, forcePush)
	s.settle(result, err)
}

// settle clears the dirty flag when a run actually moved data or confirmed
// the libraries match. Skipped and failed runs keep it set so the change
// is pushed on the next opportunity.
func (s *SyncScheduler) settle(result Result, err error) {
	if err != nil {
		return
	}

	switch result.Outcome {
	case OutcomeUploaded, OutcomeDownloaded, OutcomeInSync:
		s.mu.Lock()
		s.dirty = false
		s.mu.Unlock()
	}
}

// Stop cancels any pending debounce timer.
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
