package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sonpero/Notes2Notion/internal/core/ports/driven"
)

// SweepLockName is the distributed lock guarding a sweep cycle.
const SweepLockName = "pending-state-sweep"

const (
	defaultSweepInterval = time.Hour
	defaultSweepLockTTL  = time.Minute
)

// Sweeper periodically removes expired pending authorization states.
// With a DistributedLock configured, only one instance sweeps per cycle.
type Sweeper struct {
	store    driven.PendingStateStore
	lock     driven.DistributedLock
	logger   *slog.Logger
	interval time.Duration
	lockTTL  time.Duration

	// Internal state
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// SweeperConfig holds configuration for the sweeper.
type SweeperConfig struct {
	Store    driven.PendingStateStore
	Lock     driven.DistributedLock // Optional: skip a cycle when another instance holds it
	Logger   *slog.Logger
	Interval time.Duration // Time between sweeps (default: 1h)
	LockTTL  time.Duration // TTL for the sweep lock (default: 1m)
}

// NewSweeper creates a new sweeper.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultSweepLockTTL
	}

	return &Sweeper{
		store:    cfg.Store,
		lock:     cfg.Lock,
		logger:   logger,
		interval: interval,
		lockTTL:  lockTTL,
	}
}

// Start begins the sweep loop.
// It runs until Stop is called or context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("sweeper starting", "interval", s.interval.String())

	go s.run(ctx)

	return nil
}

// Stop gracefully stops the sweeper.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for the loop to finish
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup cycle. It reports whether Cleanup was called.
func (s *Sweeper) Sweep(ctx context.Context) bool {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, SweepLockName, s.lockTTL)
		if err != nil {
			s.logger.Warn("failed to acquire sweep lock", "error", err)
			return false
		}
		if !acquired {
			s.logger.Debug("sweep lock held by another instance, skipping cycle")
			return false
		}
		defer func() {
			if err := s.lock.Release(ctx, SweepLockName); err != nil {
				s.logger.Warn("failed to release sweep lock", "error", err)
			}
		}()
	}

	start := time.Now()
	if err := s.store.Cleanup(ctx); err != nil {
		s.logger.Error("failed to clean up expired pending states", "error", err)
		return true
	}

	s.logger.Debug("expired pending states cleaned up",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return true
}
